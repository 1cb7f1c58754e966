package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
	"github.com/iliyamo/parking-slot-reservation/internal/payment"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
)

var errStoreDown = errors.New("connection refused")

// memStore is an in-memory SlotStore and BookingStore with the same
// conditional update semantics as the MySQL repositories.
type memStore struct {
	mu       sync.Mutex
	slots    map[string]model.Slot
	bookings map[uint64]model.Booking
	nextID   uint64

	failCreate  bool
	failRelease bool
	failList    bool
}

func newMemStore(slots ...model.Slot) *memStore {
	s := &memStore{slots: map[string]model.Slot{}, bookings: map[uint64]model.Booking{}}
	for _, sl := range slots {
		sl.IsAvailable = true
		s.slots[sl.Code] = sl
	}
	return s
}

func slot(code string, floor int, vt model.VehicleType) model.Slot {
	return model.Slot{Code: code, Floor: floor, VehicleType: vt}
}

func (s *memStore) snapshot() (map[string]model.Slot, map[uint64]model.Booking, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := make(map[string]model.Slot, len(s.slots))
	for k, v := range s.slots {
		sl[k] = v
	}
	bk := make(map[uint64]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bk[k] = v
	}
	return sl, bk, s.nextID
}

func (s *memStore) restore(sl map[string]model.Slot, bk map[uint64]model.Booking, next uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots, s.bookings, s.nextID = sl, bk, next
}

func (s *memStore) slotByCode(code string) model.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[code]
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) ListAvailable(_ context.Context, vt *model.VehicleType) ([]model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errStoreDown
	}
	out := []model.Slot{}
	for _, sl := range s.slots {
		if sl.IsAvailable && (vt == nil || sl.VehicleType == *vt) {
			out = append(out, sl)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Floor != out[j].Floor {
			return out[i].Floor < out[j].Floor
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (s *memStore) GetByCode(_ context.Context, code string) (model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[code]
	if !ok {
		return model.Slot{}, repository.ErrNotFound
	}
	return sl, nil
}

func (s *memStore) Reserve(_ context.Context, code string, vt model.VehicleType, bookingID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[code]
	if !ok || sl.VehicleType != vt || !sl.IsAvailable {
		return repository.ErrSlotUnavailable
	}
	id := bookingID
	sl.IsAvailable, sl.CurrentBookingID = false, &id
	s.slots[code] = sl
	return nil
}

func (s *memStore) Release(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRelease {
		return false, errStoreDown
	}
	sl, ok := s.slots[code]
	if !ok || sl.IsAvailable {
		return false, nil
	}
	sl.IsAvailable, sl.CurrentBookingID = true, nil
	s.slots[code] = sl
	return true, nil
}

func (s *memStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errStoreDown
	}
	s.nextID++
	b.ID = s.nextID
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) GetForUser(_ context.Context, id, userID uint64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.UserID != userID {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (s *memStore) GetForUserForUpdate(ctx context.Context, id, userID uint64) (model.Booking, error) {
	return s.GetForUser(ctx, id, userID)
}

func (s *memStore) ListByUser(_ context.Context, userID uint64, limit, offset int) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errStoreDown
	}
	var all []model.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			all = append(all, b)
		}
	}
	sortNewestFirst(all)
	if offset >= len(all) {
		return []model.Booking{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memStore) LatestActive(_ context.Context, userID uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []model.Booking
	for _, b := range s.bookings {
		if b.UserID == userID && b.Status == model.BookingActive {
			active = append(active, b)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sortNewestFirst(active)
	return &active[0], nil
}

func sortNewestFirst(bs []model.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.After(bs[j].CreatedAt)
		}
		return bs[i].ID > bs[j].ID
	})
}

func (s *memStore) mutate(id uint64, cond func(model.Booking) bool, apply func(*model.Booking)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || !cond(b) {
		return repository.ErrStateConflict
	}
	apply(&b)
	s.bookings[id] = b
	return nil
}

func isActive(b model.Booking) bool { return b.Status == model.BookingActive }
func notPaid(b model.Booking) bool  { return b.PaymentStatus != model.PaymentCompleted }

func (s *memStore) Close(_ context.Context, id uint64, status model.BookingStatus, exit time.Time, minutes, amount int64) error {
	return s.mutate(id, isActive, func(b *model.Booking) {
		b.Status, b.ExitTime, b.DurationMinutes, b.Amount = status, &exit, minutes, amount
	})
}

func (s *memStore) Cancel(_ context.Context, id uint64, exit time.Time) error {
	return s.mutate(id, isActive, func(b *model.Booking) {
		b.Status, b.ExitTime = model.BookingCancelled, &exit
	})
}

func (s *memStore) SetOrderID(_ context.Context, id uint64, orderID string) error {
	return s.mutate(id, notPaid, func(b *model.Booking) { b.OrderID = &orderID })
}

func (s *memStore) MarkPaid(_ context.Context, id uint64, paymentID string) error {
	return s.mutate(id, notPaid, func(b *model.Booking) {
		b.PaymentStatus, b.PaymentID = model.PaymentCompleted, &paymentID
	})
}

func (s *memStore) MarkPaymentFailed(_ context.Context, id uint64) error {
	return s.mutate(id, notPaid, func(b *model.Booking) { b.PaymentStatus = model.PaymentFailed })
}

// memTx serializes transactions and restores the store snapshot when fn
// fails or when failCommit is set.
type memTx struct {
	mu         sync.Mutex
	store      *memStore
	failCommit bool
}

var errCommit = errors.New("commit failed")

func (m *memTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, bk, next := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(sl, bk, next)
		return err
	}
	if m.failCommit {
		m.store.restore(sl, bk, next)
		return transient("commit", errCommit)
	}
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []payment.OrderRequest
	seq      int
	err      error
}

func (g *fakeGateway) CreateOrder(_ context.Context, in payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, in)
	g.seq++
	return &payment.Order{
		ID:       "order_" + string(rune('A'+g.seq-1)),
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  in.Receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

// fixture wires the services against one memStore.
type fixture struct {
	store    *memStore
	tx       *memTx
	clock    *fakeClock
	events   *recordingPublisher
	cache    *countingInvalidator
	gateway  *fakeGateway
	signer   *payment.Signer
	slots    *SlotService
	bookings *BookingService
	payments *PaymentService
}

const testSecret = "test_key_secret"

func referenceSlots() []model.Slot {
	return []model.Slot{
		slot("C1-01", 1, model.VehicleCar),
		slot("C1-02", 1, model.VehicleCar),
		slot("C2-01", 2, model.VehicleCar),
		slot("B1-01", 1, model.VehicleBike),
		slot("T1-01", 1, model.VehicleTruck),
	}
}

func newFixture() *fixture {
	f := &fixture{
		store:   newMemStore(referenceSlots()...),
		clock:   newFakeClock(),
		events:  &recordingPublisher{},
		cache:   &countingInvalidator{},
		gateway: &fakeGateway{},
		signer:  payment.NewSigner(testSecret),
	}
	f.tx = &memTx{store: f.store}
	log := quietLogger()
	f.slots = NewSlotService(f.store, f.cache, nil, log)
	f.bookings = NewBookingService(f.tx, f.store, f.slots, f.events, f.clock, nil, log, BookingOptions{})
	f.payments = NewPaymentService(f.store, f.gateway, f.signer, f.events, f.clock, "INR", nil, log)
	return f
}

func (f *fixture) book(userID uint64, code string, vt string, minutes int64) (model.Booking, error) {
	return f.bookings.Create(context.Background(), CreateBookingInput{
		UserID:          userID,
		VehicleNumber:   "MH12AB1234",
		VehicleType:     vt,
		SlotCode:        code,
		DurationMinutes: minutes,
	})
}
