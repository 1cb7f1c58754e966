package model

import "time"

// Slot describes a single physical parking space.  Slots are provisioned
// once by the seeder and afterwards only their availability changes.
//
// Fields:
//
//	ID               - primary key identifier.
//	Code             - unique human readable code such as "C1-01".
//	Floor            - floor number the slot is on.
//	VehicleType      - the vehicle class the slot accepts.
//	IsAvailable      - false exactly while CurrentBookingID is set.
//	CurrentBookingID - booking occupying the slot (nil when free).
type Slot struct {
	ID               uint64      `json:"id"`
	Code             string      `json:"slotNumber"`
	Floor            int         `json:"floor"`
	VehicleType      VehicleType `json:"vehicleType"`
	IsAvailable      bool        `json:"isAvailable"`
	CurrentBookingID *uint64     `json:"currentBooking"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Consistent reports whether the availability flag agrees with the booking
// back-reference.
func (s Slot) Consistent() bool {
	return s.IsAvailable == (s.CurrentBookingID == nil)
}
