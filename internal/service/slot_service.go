package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/metrics"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

// SlotService exposes the slot registry to handlers and to the booking
// lifecycle.  Reserve and Release go straight to the store's conditional
// updates; the service only translates errors and keeps the listing cache
// honest.
type SlotService struct {
	slots   SlotStore
	cache   ListingInvalidator
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewSlotService wires a SlotService.  cache and m may be nil.
func NewSlotService(slots SlotStore, cache ListingInvalidator, m *metrics.Metrics, log logrus.FieldLogger) *SlotService {
	return &SlotService{slots: slots, cache: cache, metrics: m, log: log}
}

// ListAvailable returns the free slots, optionally filtered by a raw vehicle
// type string as received from a query parameter.  An empty string means no
// filter.
func (s *SlotService) ListAvailable(ctx context.Context, rawType string) ([]model.Slot, error) {
	var filter *model.VehicleType
	if strings.TrimSpace(rawType) != "" {
		vt, err := model.ParseVehicleType(rawType)
		if err != nil {
			return nil, invalid("vehicleType must be one of car, bike, truck")
		}
		filter = &vt
	}
	slots, err := s.slots.ListAvailable(ctx, filter)
	if err != nil {
		return nil, transient("list available slots", err)
	}
	return slots, nil
}

// Get returns a single slot by code.
func (s *SlotService) Get(ctx context.Context, code string) (model.Slot, error) {
	slot, err := s.slots.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Slot{}, ErrNotFound
	}
	if err != nil {
		return model.Slot{}, transient("get slot", err)
	}
	return slot, nil
}

// Reserve claims a free slot for bookingID and returns its new state.  It
// joins the transaction in ctx when there is one, in which case the caller
// is responsible for calling Invalidate after commit.
func (s *SlotService) Reserve(ctx context.Context, code string, vt model.VehicleType, bookingID uint64) (model.Slot, error) {
	if err := s.reserve(ctx, code, vt, bookingID); err != nil {
		return model.Slot{}, err
	}
	return s.Get(ctx, code)
}

func (s *SlotService) reserve(ctx context.Context, code string, vt model.VehicleType, bookingID uint64) error {
	err := s.slots.Reserve(ctx, code, vt, bookingID)
	if errors.Is(err, repository.ErrSlotUnavailable) {
		s.metrics.SlotConflict()
		return ErrSlotUnavailable
	}
	if err != nil {
		return transient("reserve slot", err)
	}
	return nil
}

// Release frees the slot.  Releasing an already free slot or an unknown code
// is not an error.
func (s *SlotService) Release(ctx context.Context, code string) error {
	changed, err := s.slots.Release(ctx, code)
	if err != nil {
		return transient("release slot", err)
	}
	if changed {
		s.metrics.SlotReleased()
	}
	return nil
}

// Invalidate drops cached listings.  Failures only cost freshness until the
// cache TTL expires, so they are logged and swallowed.
func (s *SlotService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("slot listing cache invalidation failed")
	}
}
