package service

import (
	"context"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/payment"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
)

// SlotStore is the persistence contract of the slot registry.  Reserve must
// be a single conditional update; see repository.SlotRepo.
type SlotStore interface {
	ListAvailable(ctx context.Context, vehicleType *model.VehicleType) ([]model.Slot, error)
	GetByCode(ctx context.Context, code string) (model.Slot, error)
	Reserve(ctx context.Context, code string, vehicleType model.VehicleType, bookingID uint64) error
	Release(ctx context.Context, code string) (bool, error)
}

// BookingStore is the persistence contract for bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error)
	GetForUserForUpdate(ctx context.Context, id, userID uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error)
	LatestActive(ctx context.Context, userID uint64) (*model.Booking, error)
	Close(ctx context.Context, id uint64, status model.BookingStatus, exitTime time.Time, durationMinutes, amount int64) error
	Cancel(ctx context.Context, id uint64, exitTime time.Time) error
	SetOrderID(ctx context.Context, id uint64, orderID string) error
	MarkPaid(ctx context.Context, id uint64, paymentID string) error
	MarkPaymentFailed(ctx context.Context, id uint64) error
}

// TxManager runs fn atomically; stores called with the ctx passed to fn
// take part in the transaction.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Gateway creates payment orders.
type Gateway interface {
	CreateOrder(ctx context.Context, in payment.OrderRequest) (*payment.Order, error)
	KeyID() string
}

// EventPublisher delivers domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// ListingInvalidator drops cached slot listings after a slot changes state.
type ListingInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
