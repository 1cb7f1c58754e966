package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/metrics"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

const (
	// DefaultHistoryLimit is the history page size when none is requested.
	DefaultHistoryLimit = 20
	// MaxHistoryLimit caps a single history page.
	MaxHistoryLimit = 100
	// MaxDurationMinutes bounds the requested stay to one week.
	MaxDurationMinutes = 7 * 24 * 60
	maxVehicleNumber   = 32
	maxSlotCode        = 16
)

// CreateBookingInput is the validated shape of a booking request.
type CreateBookingInput struct {
	UserID          uint64
	VehicleNumber   string
	VehicleType     string
	SlotCode        string
	DurationMinutes int64
}

// Page selects a window of the booking history.
type Page struct {
	Limit  int
	Offset int
}

// BookingOptions carries tunables read from configuration.
type BookingOptions struct {
	RatePerHour  int64
	HistoryLimit int
}

// BookingService drives the booking state machine: active to completed on
// exit, active to cancelled on cancel.  Slot occupancy always changes in the
// same transaction as the booking row.
type BookingService struct {
	tx       TxManager
	bookings BookingStore
	slots    *SlotService
	events   EventPublisher
	clock    Clock
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	opts     BookingOptions
}

// NewBookingService wires a BookingService.  events and m may be nil.
func NewBookingService(tx TxManager, bookings BookingStore, slots *SlotService, events EventPublisher,
	clock Clock, m *metrics.Metrics, log logrus.FieldLogger, opts BookingOptions) *BookingService {
	if opts.RatePerHour <= 0 {
		opts.RatePerHour = DefaultRatePerHour
	}
	if opts.HistoryLimit <= 0 || opts.HistoryLimit > MaxHistoryLimit {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &BookingService{
		tx: tx, bookings: bookings, slots: slots, events: events,
		clock: clock, metrics: m, log: log, opts: opts,
	}
}

// Create validates in, records an active booking and claims the slot.  The
// booking insert and the slot update commit together; if the slot is taken
// nothing is written and ErrSlotUnavailable is returned.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (model.Booking, error) {
	vt, err := model.ParseVehicleType(in.VehicleType)
	if err != nil {
		return model.Booking{}, invalid("vehicleType must be one of car, bike, truck")
	}
	number := strings.ToUpper(strings.TrimSpace(in.VehicleNumber))
	if number == "" || len(number) > maxVehicleNumber {
		return model.Booking{}, invalid("vehicleNumber is required")
	}
	code := strings.TrimSpace(in.SlotCode)
	if code == "" || len(code) > maxSlotCode {
		return model.Booking{}, invalid("slotNumber is required")
	}
	if in.DurationMinutes <= 0 || in.DurationMinutes > MaxDurationMinutes {
		return model.Booking{}, invalid("duration must be between 1 minute and 7 days")
	}

	now := s.clock.Now().UTC()
	b := model.Booking{
		UserID:          in.UserID,
		VehicleNumber:   number,
		VehicleType:     vt,
		SlotCode:        code,
		EntryTime:       now,
		DurationMinutes: in.DurationMinutes,
		Amount:          ChargeFor(in.DurationMinutes, s.opts.RatePerHour),
		Status:          model.BookingActive,
		PaymentStatus:   model.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.tx.Do(ctx, func(ctx context.Context) error {
		if err := s.bookings.Create(ctx, &b); err != nil {
			return transient("create booking", err)
		}
		return s.slots.reserve(ctx, code, vt, b.ID)
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.log.WithFields(logrus.Fields{"user_id": in.UserID, "slot": code}).Info("slot not available")
		}
		return model.Booking{}, err
	}

	s.slots.Invalidate(ctx)
	s.metrics.BookingTransition(string(model.BookingActive))
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID, "user_id": b.UserID, "slot": b.SlotCode, "amount": b.Amount,
	}).Info("booking created")
	s.publish(ctx, queue.BookingCreated, b)
	return b, nil
}

// Exit completes an active booking: the final duration is the elapsed time
// rounded up to whole minutes (at least one), the amount is recomputed from
// it and the slot goes back to the pool.
func (s *BookingService) Exit(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	var out model.Booking
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		b, err := s.lockActive(ctx, bookingID, userID)
		if err != nil {
			return err
		}
		exit := s.clock.Now().UTC()
		minutes := ElapsedMinutes(b.EntryTime, exit)
		if minutes < 1 {
			minutes = 1
		}
		amount := ChargeFor(minutes, s.opts.RatePerHour)
		if err := s.bookings.Close(ctx, b.ID, model.BookingCompleted, exit, minutes, amount); err != nil {
			return closeErr("complete booking", err)
		}
		if err := s.slots.Release(ctx, b.SlotCode); err != nil {
			return err
		}
		b.Status = model.BookingCompleted
		b.ExitTime = &exit
		b.DurationMinutes = minutes
		b.Amount = amount
		b.UpdatedAt = exit
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.slots.Invalidate(ctx)
	s.metrics.BookingTransition(string(model.BookingCompleted))
	s.log.WithFields(logrus.Fields{
		"booking_id": out.ID, "user_id": out.UserID, "slot": out.SlotCode,
		"duration": out.DurationMinutes, "amount": out.Amount,
	}).Info("booking completed")
	s.publish(ctx, queue.BookingCompleted, out)
	return out, nil
}

// Cancel abandons an active booking and frees its slot.  The estimated
// amount is kept on the record.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	var out model.Booking
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		b, err := s.lockActive(ctx, bookingID, userID)
		if err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		if err := s.bookings.Cancel(ctx, b.ID, now); err != nil {
			return closeErr("cancel booking", err)
		}
		if err := s.slots.Release(ctx, b.SlotCode); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		b.ExitTime = &now
		b.UpdatedAt = now
		out = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.slots.Invalidate(ctx)
	s.metrics.BookingTransition(string(model.BookingCancelled))
	s.log.WithFields(logrus.Fields{
		"booking_id": out.ID, "user_id": out.UserID, "slot": out.SlotCode,
	}).Info("booking cancelled")
	s.publish(ctx, queue.BookingCancelled, out)
	return out, nil
}

// History returns a page of the user's bookings, newest first.
func (s *BookingService) History(ctx context.Context, userID uint64, p Page) ([]model.Booking, error) {
	if p.Offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = s.opts.HistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	list, err := s.bookings.ListByUser(ctx, userID, limit, p.Offset)
	if err != nil {
		return nil, transient("list bookings", err)
	}
	return list, nil
}

// Active returns the user's most recently created active booking, or nil.
func (s *BookingService) Active(ctx context.Context, userID uint64) (*model.Booking, error) {
	b, err := s.bookings.LatestActive(ctx, userID)
	if err != nil {
		return nil, transient("active booking", err)
	}
	return b, nil
}

// Get returns one of the user's bookings.
func (s *BookingService) Get(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	b, err := s.bookings.GetForUser(ctx, bookingID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, transient("get booking", err)
	}
	return b, nil
}

// lockActive loads the booking with a row lock and checks it is still
// active.
func (s *BookingService) lockActive(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	b, err := s.bookings.GetForUserForUpdate(ctx, bookingID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, transient("load booking", err)
	}
	if !b.IsActive() {
		return model.Booking{}, ErrAlreadyCompleted
	}
	return b, nil
}

func closeErr(op string, err error) error {
	if errors.Is(err, repository.ErrStateConflict) {
		return ErrAlreadyCompleted
	}
	return transient(op, err)
}

// publish emits a booking event.  The state change is already committed, so
// a broker failure is logged and counted but not returned.
func (s *BookingService) publish(ctx context.Context, eventType string, b model.Booking) {
	if s.events == nil {
		return
	}
	ev := bookingEvent(eventType, s.clock.Now(), b)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.metrics.EventPublishFailed()
		s.log.WithError(err).WithFields(logrus.Fields{
			"event": eventType, "booking_id": b.ID,
		}).Warn("publish event failed")
	}
}

func bookingEvent(eventType string, at time.Time, b model.Booking) queue.Event {
	ev := queue.NewEvent(eventType, at)
	ev.BookingID = b.ID
	ev.UserID = b.UserID
	ev.SlotCode = b.SlotCode
	ev.VehicleNumber = b.VehicleNumber
	ev.VehicleType = string(b.VehicleType)
	ev.Amount = b.Amount
	ev.Status = string(b.Status)
	ev.PaymentStatus = string(b.PaymentStatus)
	if b.OrderID != nil {
		ev.OrderID = *b.OrderID
	}
	if b.PaymentID != nil {
		ev.PaymentID = *b.PaymentID
	}
	return ev
}
