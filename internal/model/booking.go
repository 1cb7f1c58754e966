package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentStatus tracks reconciliation with the payment gateway.  Completed
// is terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Booking records a user's reservation of a slot for a vehicle.  Bookings
// are never deleted; completed and cancelled rows form the user's history.
//
// Fields:
//
//	ID              - primary key identifier.
//	UserID          - owner of the booking.
//	VehicleNumber   - registration plate as entered by the user.
//	VehicleType     - must match the reserved slot's type.
//	SlotCode        - code of the reserved slot.
//	EntryTime       - when the booking was created.
//	ExitTime        - set when the booking leaves the active state.
//	DurationMinutes - requested duration, replaced by the actual one on exit.
//	Amount          - charge in major currency units.
//	Status          - lifecycle state.
//	PaymentStatus   - gateway reconciliation state.
//	OrderID         - most recent gateway order id.
//	PaymentID       - gateway payment id once verified.
type Booking struct {
	ID              uint64        `json:"id"`
	UserID          uint64        `json:"userId"`
	VehicleNumber   string        `json:"vehicleNumber"`
	VehicleType     VehicleType   `json:"vehicleType"`
	SlotCode        string        `json:"parkingSlot"`
	EntryTime       time.Time     `json:"entryTime"`
	ExitTime        *time.Time    `json:"exitTime,omitempty"`
	DurationMinutes int64         `json:"duration"`
	Amount          int64         `json:"amount"`
	Status          BookingStatus `json:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	OrderID         *string       `json:"razorpayOrderId,omitempty"`
	PaymentID       *string       `json:"paymentId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func (b Booking) IsActive() bool { return b.Status == BookingActive }
