// Package queue publishes parking domain events to RabbitMQ and consumes
// them for the audit log.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeName is the durable topic exchange all parking events go to.
const ExchangeName = "parking.events"

// Event types double as routing keys.
const (
	BookingCreated   = "booking.created"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
	PaymentCompleted = "payment.completed"
	PaymentFailed    = "payment.failed"
)

// Event is the payload published for every booking or payment transition.
// It carries enough context for consumers to log or notify without
// querying the primary database.
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	OccurredAt    time.Time `json:"occurred_at"`
	BookingID     uint64    `json:"booking_id"`
	UserID        uint64    `json:"user_id"`
	SlotCode      string    `json:"slot"`
	VehicleNumber string    `json:"vehicle_number"`
	VehicleType   string    `json:"vehicle_type"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	OrderID       string    `json:"order_id,omitempty"`
	PaymentID     string    `json:"payment_id,omitempty"`
}

// NewEvent stamps a fresh event id and timestamp.
func NewEvent(eventType string, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: eventType, OccurredAt: at.UTC()}
}
