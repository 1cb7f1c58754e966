package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/metrics"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/payment"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// SignatureVerifier checks a gateway callback signature.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

// Intent is what a client needs to open the gateway checkout.
type Intent struct {
	BookingID uint64 `json:"parkingId"`
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PublicKey string `json:"key"`
}

// VerifyInput is the payment callback forwarded by the client.
type VerifyInput struct {
	BookingID uint64
	UserID    uint64
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyResult reports a confirmed payment.
type VerifyResult struct {
	BookingID uint64 `json:"parkingId"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

// PaymentService creates gateway orders for bookings and reconciles the
// callbacks.  Payment status only ever moves pending/failed to completed;
// once completed it is final.
type PaymentService struct {
	bookings BookingStore
	gateway  Gateway
	signer   SignatureVerifier
	events   EventPublisher
	clock    Clock
	currency string
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// NewPaymentService wires a PaymentService.  events and m may be nil.
func NewPaymentService(bookings BookingStore, gateway Gateway, signer SignatureVerifier, events EventPublisher,
	clock Clock, currency string, m *metrics.Metrics, log logrus.FieldLogger) *PaymentService {
	if clock == nil {
		clock = RealClock{}
	}
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		bookings: bookings, gateway: gateway, signer: signer, events: events,
		clock: clock, currency: currency, metrics: m, log: log,
	}
}

// CreateIntent opens a gateway order for the stored booking amount.  The
// amount is never taken from the client.  Calling it again replaces the
// stored order id, so only the latest order can be verified.
func (s *PaymentService) CreateIntent(ctx context.Context, bookingID, userID uint64) (Intent, error) {
	b, err := s.load(ctx, bookingID, userID)
	if err != nil {
		return Intent{}, err
	}
	if b.PaymentStatus == model.PaymentCompleted {
		return Intent{}, ErrAlreadyPaid
	}
	if b.Status == model.BookingCancelled {
		return Intent{}, invalid("booking was cancelled")
	}
	if b.Amount <= 0 {
		return Intent{}, invalid("booking has nothing to pay")
	}

	req := payment.OrderRequest{
		Amount:   b.Amount * 100,
		Currency: s.currency,
		Receipt:  receiptFor(b.ID, s.clock.Now().Unix()),
		Notes: map[string]string{
			"booking_id":     strconv.FormatUint(b.ID, 10),
			"vehicle_number": b.VehicleNumber,
			"slot":           b.SlotCode,
		},
	}
	order, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		s.metrics.PaymentIntent("error")
		s.log.WithError(err).WithField("booking_id", b.ID).Warn("create gateway order failed")
		if errors.Is(err, payment.ErrGatewayRejected) {
			return Intent{}, fmt.Errorf("%w: %w", ErrPaymentRejected, err)
		}
		return Intent{}, transient("create gateway order", err)
	}

	if err := s.bookings.SetOrderID(ctx, b.ID, order.ID); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return Intent{}, ErrAlreadyPaid
		}
		return Intent{}, transient("store order id", err)
	}
	s.metrics.PaymentIntent("created")
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID, "user_id": userID, "order_id": order.ID, "amount": req.Amount,
	}).Info("payment order created")

	return Intent{
		BookingID: b.ID,
		OrderID:   order.ID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		PublicKey: s.gateway.KeyID(),
	}, nil
}

// Verify checks the callback signature and that it refers to the booking's
// current order.  A mismatch marks the payment failed and returns
// ErrSignatureMismatch.  Repeating a successful verification for the same
// payment returns the same result; anything else against a paid booking is
// ErrAlreadyPaid.
func (s *PaymentService) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.Signature = strings.TrimSpace(in.Signature)
	if in.BookingID == 0 || in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return VerifyResult{}, invalid("order id, payment id, signature and parking id are required")
	}

	b, err := s.load(ctx, in.BookingID, in.UserID)
	if err != nil {
		return VerifyResult{}, err
	}
	signed := s.signer.Verify(in.OrderID, in.PaymentID, in.Signature)
	result := VerifyResult{BookingID: b.ID, OrderID: in.OrderID, PaymentID: in.PaymentID}

	if b.PaymentStatus == model.PaymentCompleted {
		if signed && b.PaymentID != nil && *b.PaymentID == in.PaymentID {
			s.metrics.PaymentVerification("duplicate")
			return result, nil
		}
		return VerifyResult{}, ErrAlreadyPaid
	}

	logEntry := s.log.WithFields(logrus.Fields{
		"booking_id": b.ID, "user_id": in.UserID, "order_id": in.OrderID,
	})
	if !signed || b.OrderID == nil || *b.OrderID != in.OrderID {
		err := s.bookings.MarkPaymentFailed(ctx, b.ID)
		switch {
		case errors.Is(err, repository.ErrStateConflict):
			// paid concurrently; completed is final
		case err != nil:
			return VerifyResult{}, transient("mark payment failed", err)
		default:
			b.PaymentStatus = model.PaymentFailed
			s.publish(ctx, queue.PaymentFailed, b)
		}
		s.metrics.PaymentVerification("mismatch")
		logEntry.Warn("payment signature mismatch")
		return VerifyResult{}, ErrSignatureMismatch
	}

	if err := s.bookings.MarkPaid(ctx, b.ID, in.PaymentID); err != nil {
		if !errors.Is(err, repository.ErrStateConflict) {
			return VerifyResult{}, transient("mark paid", err)
		}
		// Another request completed the payment first.
		cur, lerr := s.load(ctx, b.ID, in.UserID)
		if lerr != nil {
			return VerifyResult{}, lerr
		}
		if cur.PaymentID != nil && *cur.PaymentID == in.PaymentID {
			s.metrics.PaymentVerification("duplicate")
			return result, nil
		}
		return VerifyResult{}, ErrAlreadyPaid
	}

	b.PaymentStatus = model.PaymentCompleted
	b.PaymentID = &in.PaymentID
	s.metrics.PaymentVerification("verified")
	logEntry.WithField("payment_id", in.PaymentID).Info("payment verified")
	s.publish(ctx, queue.PaymentCompleted, b)
	return result, nil
}

func (s *PaymentService) load(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	b, err := s.bookings.GetForUser(ctx, bookingID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, transient("load booking", err)
	}
	return b, nil
}

func (s *PaymentService) publish(ctx context.Context, eventType string, b model.Booking) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, bookingEvent(eventType, s.clock.Now(), b)); err != nil {
		s.metrics.EventPublishFailed()
		s.log.WithError(err).WithFields(logrus.Fields{
			"event": eventType, "booking_id": b.ID,
		}).Warn("publish event failed")
	}
}

// receiptFor builds the merchant receipt label sent with an order.
func receiptFor(bookingID uint64, unix int64) string {
	return fmt.Sprintf("parking_%d_%d", bookingID, unix)
}
