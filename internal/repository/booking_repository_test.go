package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

var bookingCols = []string{
	"id", "user_id", "vehicle_number", "vehicle_type", "slot_number",
	"entry_time", "exit_time", "duration_minutes", "amount", "status",
	"payment_status", "order_id", "payment_id", "created_at", "updated_at",
}

func TestBookingRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT INTO bookings \(user_id,vehicle_number,vehicle_type,slot_number,entry_time,duration_minutes,amount,status,payment_status,created_at,updated_at\) VALUES`).
		WithArgs(uint64(3), "MH12AB1234", "car", "C1-01", now, int64(90), int64(15), "active", "pending", now, now).
		WillReturnResult(sqlmock.NewResult(41, 1))

	b := &model.Booking{
		UserID: 3, VehicleNumber: "MH12AB1234", VehicleType: model.VehicleCar, SlotCode: "C1-01",
		EntryTime: now, DurationMinutes: 90, Amount: 15,
		Status: model.BookingActive, PaymentStatus: model.PaymentPending,
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, NewBookingRepo(db).Create(context.Background(), b))
	assert.Equal(t, uint64(41), b.ID)
}

func TestBookingRepoGetForUser(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	exit := now.Add(2 * time.Hour)
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? AND user_id = \? LIMIT 1$`).
		WithArgs(uint64(41), uint64(3)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(
			41, 3, "MH12AB1234", "car", "C1-01", now, exit, 120, 20, "completed",
			"completed", "order_A", "pay_1", now, exit))

	b, err := NewBookingRepo(db).GetForUser(context.Background(), 41, 3)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, b.Status)
	assert.Equal(t, model.PaymentCompleted, b.PaymentStatus)
	require.NotNil(t, b.ExitTime)
	assert.Equal(t, exit, *b.ExitTime)
	require.NotNil(t, b.OrderID)
	assert.Equal(t, "order_A", *b.OrderID)
	require.NotNil(t, b.PaymentID)
	assert.Equal(t, "pay_1", *b.PaymentID)
}

func TestBookingRepoGetForUserNotOwned(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE id = \? AND user_id = \? LIMIT 1 FOR UPDATE`).
		WithArgs(uint64(41), uint64(4)).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := NewBookingRepo(db).GetForUserForUpdate(context.Background(), 41, 4)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepoListByUser(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE user_id = \? ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 40`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(2, 3, "X", "bike", "B1-01", now, nil, 30, 5, "active", "pending", nil, nil, now, now).
			AddRow(1, 3, "X", "car", "C1-01", now, nil, 60, 10, "cancelled", "pending", nil, nil, now, now))

	list, err := NewBookingRepo(db).ListByUser(context.Background(), 3, 20, 40)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(2), list[0].ID)
	assert.Nil(t, list[0].ExitTime)
	assert.Nil(t, list[0].OrderID)
	assert.Equal(t, model.BookingCancelled, list[1].Status)
}

func TestBookingRepoLatestActiveNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT .* FROM bookings WHERE user_id = \? AND status = \? ORDER BY created_at DESC, id DESC LIMIT 1`).
		WithArgs(uint64(3), "active").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	b, err := NewBookingRepo(db).LatestActive(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBookingRepoCloseOnlyFromActive(t *testing.T) {
	db, mock := newMock(t)
	exit := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	const closeSQL = `UPDATE bookings SET status = \?, exit_time = \?, duration_minutes = \?, amount = \? WHERE id = \? AND status = \?`
	mock.ExpectExec(closeSQL).
		WithArgs("completed", exit, int64(120), int64(20), uint64(41), "active").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(closeSQL).
		WithArgs("completed", exit, int64(120), int64(20), uint64(41), "active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewBookingRepo(db)
	require.NoError(t, repo.Close(context.Background(), 41, model.BookingCompleted, exit, 120, 20))
	err := repo.Close(context.Background(), 41, model.BookingCompleted, exit, 120, 20)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestBookingRepoCancel(t *testing.T) {
	db, mock := newMock(t)
	exit := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE bookings SET status = \?, exit_time = \? WHERE id = \? AND status = \?`).
		WithArgs("cancelled", exit, uint64(41), "active").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewBookingRepo(db).Cancel(context.Background(), 41, exit))
}

func TestBookingRepoPaymentTransitionsNeverLeaveCompleted(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE bookings SET payment_status = \?, payment_id = \? WHERE id = \? AND payment_status <> \?`).
		WithArgs("completed", "pay_1", uint64(41), "completed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE bookings SET payment_status = \? WHERE id = \? AND payment_status <> \?`).
		WithArgs("failed", uint64(41), "completed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE bookings SET order_id = \? WHERE id = \? AND payment_status <> \?`).
		WithArgs("order_B", uint64(41), "completed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewBookingRepo(db)
	require.ErrorIs(t, repo.MarkPaid(context.Background(), 41, "pay_1"), ErrStateConflict)
	require.ErrorIs(t, repo.MarkPaymentFailed(context.Background(), 41), ErrStateConflict)
	require.NoError(t, repo.SetOrderID(context.Background(), 41, "order_B"))
}
