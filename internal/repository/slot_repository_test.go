package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "slot_number", "floor", "vehicle_type", "is_available",
		"current_booking_id", "created_at", "updated_at",
	})
}

func TestSlotRepoListAvailable(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM parking_slots WHERE is_available = \? AND vehicle_type = \? ORDER BY floor ASC, slot_number ASC`).
		WithArgs(true, "car").
		WillReturnRows(slotRows().
			AddRow(1, "C1-01", 1, "car", true, nil, now, now).
			AddRow(2, "C2-01", 2, "car", true, nil, now, now))

	vt := model.VehicleCar
	slots, err := NewSlotRepo(db).ListAvailable(context.Background(), &vt)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "C1-01", slots[0].Code)
	assert.Equal(t, model.VehicleCar, slots[0].VehicleType)
	assert.True(t, slots[1].Consistent())
}

func TestSlotRepoListAvailableUnfiltered(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM parking_slots WHERE is_available = \? ORDER BY floor ASC, slot_number ASC`).
		WithArgs(true).
		WillReturnRows(slotRows())

	slots, err := NewSlotRepo(db).ListAvailable(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestSlotRepoGetByCode(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM parking_slots WHERE slot_number = \? LIMIT 1`).
		WithArgs("C1-01").
		WillReturnRows(slotRows().AddRow(1, "C1-01", 1, "car", false, 77, now, now))
	mock.ExpectQuery(`SELECT .* FROM parking_slots WHERE slot_number = \? LIMIT 1`).
		WithArgs("Z9-99").
		WillReturnRows(slotRows())

	repo := NewSlotRepo(db)
	s, err := repo.GetByCode(context.Background(), "C1-01")
	require.NoError(t, err)
	require.NotNil(t, s.CurrentBookingID)
	assert.Equal(t, uint64(77), *s.CurrentBookingID)
	assert.True(t, s.Consistent())

	_, err = repo.GetByCode(context.Background(), "Z9-99")
	require.ErrorIs(t, err, ErrNotFound)
}

const reserveSQL = `UPDATE parking_slots SET is_available = \?, current_booking_id = \? WHERE slot_number = \? AND vehicle_type = \? AND is_available = \?`

func TestSlotRepoReserve(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(reserveSQL).
		WithArgs(false, uint64(9), "C1-01", "car", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewSlotRepo(db).Reserve(context.Background(), "C1-01", model.VehicleCar, 9))
}

func TestSlotRepoReserveLosesRace(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(reserveSQL).
		WithArgs(false, uint64(10), "C1-01", "car", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewSlotRepo(db).Reserve(context.Background(), "C1-01", model.VehicleCar, 10)
	require.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestSlotRepoReserveDriverError(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("driver: bad connection")
	mock.ExpectExec(reserveSQL).WillReturnError(boom)

	err := NewSlotRepo(db).Reserve(context.Background(), "C1-01", model.VehicleCar, 10)
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrSlotUnavailable)
}

func TestSlotRepoReleaseIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	const releaseSQL = `UPDATE parking_slots SET is_available = \?, current_booking_id = \? WHERE slot_number = \? AND is_available = \?`
	mock.ExpectExec(releaseSQL).WithArgs(true, nil, "C1-01", false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(releaseSQL).WithArgs(true, nil, "C1-01", false).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewSlotRepo(db)
	changed, err := repo.Release(context.Background(), "C1-01")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Release(context.Background(), "C1-01")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSlotRepoInsertBulk(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO parking_slots \(slot_number,floor,vehicle_type,is_available\) VALUES \(\?,\?,\?,\?\),\(\?,\?,\?,\?\) ON DUPLICATE KEY UPDATE`).
		WithArgs("C1-01", 1, "car", true, "B1-01", 1, "bike", true).
		WillReturnResult(sqlmock.NewResult(2, 2))

	n, err := NewSlotRepo(db).InsertBulk(context.Background(), []model.Slot{
		{Code: "C1-01", Floor: 1, VehicleType: model.VehicleCar},
		{Code: "B1-01", Floor: 1, VehicleType: model.VehicleBike},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = NewSlotRepo(db).InsertBulk(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSlotRepoJoinsTransaction(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(reserveSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewSlotRepo(db)
	err := database.NewTxManager(db).Do(context.Background(), func(ctx context.Context) error {
		return repo.Reserve(ctx, "C1-01", model.VehicleCar, 1)
	})
	require.ErrorIs(t, err, ErrSlotUnavailable)
}
