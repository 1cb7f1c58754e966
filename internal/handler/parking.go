package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// SlotLister is the part of the slot service the HTTP layer needs.
type SlotLister interface {
	ListAvailable(ctx context.Context, rawType string) ([]model.Slot, error)
}

// BookingManager is the booking lifecycle as seen by the HTTP layer.
type BookingManager interface {
	Create(ctx context.Context, in service.CreateBookingInput) (model.Booking, error)
	Exit(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
	Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
	History(ctx context.Context, userID uint64, p service.Page) ([]model.Booking, error)
	Active(ctx context.Context, userID uint64) (*model.Booking, error)
	Get(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
}

// ParkingHandler serves slot browsing and the booking lifecycle under
// /api/parking.  Every route except the slot listing runs behind JWTAuth.
type ParkingHandler struct {
	Slots    SlotLister
	Bookings BookingManager
	Log      logrus.FieldLogger
}

func NewParkingHandler(slots SlotLister, bookings BookingManager, log logrus.FieldLogger) *ParkingHandler {
	return &ParkingHandler{Slots: slots, Bookings: bookings, Log: log}
}

type bookReq struct {
	VehicleNumber string `json:"vehicleNumber"`
	VehicleType   string `json:"vehicleType"`
	SlotNumber    string `json:"slotNumber"`
	Duration      int64  `json:"duration"`
}

// ListSlots handles GET /api/parking/slots?vehicleType=car.
func (h *ParkingHandler) ListSlots(c echo.Context) error {
	slots, err := h.Slots.ListAvailable(c.Request().Context(), c.QueryParam("vehicleType"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots, "count": len(slots)})
}

// Book handles POST /api/parking/book.  duration is in minutes.
func (h *ParkingHandler) Book(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := bindStrict(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	b, err := h.Bookings.Create(c.Request().Context(), service.CreateBookingInput{
		UserID:          userID,
		VehicleNumber:   req.VehicleNumber,
		VehicleType:     req.VehicleType,
		SlotCode:        req.SlotNumber,
		DurationMinutes: req.Duration,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "parking slot booked", "parking": b})
}

// History handles GET /api/parking/history?limit=&offset=.
func (h *ParkingHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offset"})
	}
	list, err := h.Bookings.History(c.Request().Context(), userID, service.Page{Limit: limit, Offset: offset})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"parkings": list, "count": len(list)})
}

// Active handles GET /api/parking/active.  parking is null when the user
// has no active booking.
func (h *ParkingHandler) Active(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Bookings.Active(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"parking": b})
}

// Get handles GET /api/parking/bookings/:id.
func (h *ParkingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.Get(c.Request().Context(), id, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"parking": b})
}

// Exit handles POST /api/parking/exit/:id.
func (h *ParkingHandler) Exit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.Exit(c.Request().Context(), id, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "exit recorded",
		"parking":  b,
		"duration": b.DurationMinutes,
		"amount":   b.Amount,
	})
}

// Cancel handles POST /api/parking/cancel/:id.
func (h *ParkingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Bookings.Cancel(c.Request().Context(), id, userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled", "parking": b})
}
