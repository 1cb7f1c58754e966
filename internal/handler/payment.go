package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// PaymentManager is the payment reconciliation service as seen by the HTTP
// layer.
type PaymentManager interface {
	CreateIntent(ctx context.Context, bookingID, userID uint64) (service.Intent, error)
	Verify(ctx context.Context, in service.VerifyInput) (service.VerifyResult, error)
}

// PaymentHandler serves /api/payment.
type PaymentHandler struct {
	Payments PaymentManager
	Log      logrus.FieldLogger
}

func NewPaymentHandler(p PaymentManager, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{Payments: p, Log: log}
}

// createOrderReq accepts the client's amount for compatibility; the stored
// booking amount is what gets charged.
type createOrderReq struct {
	ParkingID uint64 `json:"parkingId"`
	Amount    *int64 `json:"amount,omitempty"`
}

type verifyReq struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	ParkingID uint64 `json:"parkingId"`
}

// CreateOrder handles POST /api/payment/create-order.
func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createOrderReq
	if err := bindStrict(c, &req); err != nil || req.ParkingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parkingId is required"})
	}
	intent, err := h.Payments.CreateIntent(c.Request().Context(), req.ParkingID, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"orderId":  intent.OrderID,
		"amount":   intent.Amount,
		"currency": intent.Currency,
		"key":      intent.PublicKey,
	})
}

// Verify handles POST /api/payment/verify.
func (h *PaymentHandler) Verify(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req verifyReq
	if err := bindStrict(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Payments.Verify(c.Request().Context(), service.VerifyInput{
		BookingID: req.ParkingID,
		UserID:    userID,
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "payment verified",
		"paymentId": res.PaymentID,
	})
}
