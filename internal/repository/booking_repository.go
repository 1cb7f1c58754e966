package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

var bookingColumns = []string{
	"id", "user_id", "vehicle_number", "vehicle_type", "slot_number",
	"entry_time", "exit_time", "duration_minutes", "amount", "status",
	"payment_status", "order_id", "payment_id", "created_at", "updated_at",
}

// BookingRepo provides access to the bookings table.  Every read is scoped
// to the owning user so that another user's booking is indistinguishable
// from a missing one.  State transitions are conditional updates that
// return ErrStateConflict when the row already moved on.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Create inserts b and populates its generated ID.  CreatedAt and UpdatedAt
// are written from the struct so history ordering follows the service
// clock.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	query, args, err := sq.Insert("bookings").
		Columns(
			"user_id", "vehicle_number", "vehicle_type", "slot_number",
			"entry_time", "duration_minutes", "amount", "status",
			"payment_status", "created_at", "updated_at",
		).
		Values(
			b.UserID, b.VehicleNumber, string(b.VehicleType), b.SlotCode,
			b.EntryTime.UTC(), b.DurationMinutes, b.Amount, string(b.Status),
			string(b.PaymentStatus), b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("create booking: build query: %w", err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create booking: last insert id: %w", err)
	}
	b.ID = uint64(id)
	return nil
}

// GetForUser returns the booking with the given id owned by userID.
func (r *BookingRepo) GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error) {
	return r.getForUser(ctx, id, userID, false)
}

// GetForUserForUpdate is GetForUser with a row lock.  It must run inside a
// transaction; the lock is held until commit or rollback.
func (r *BookingRepo) GetForUserForUpdate(ctx context.Context, id, userID uint64) (model.Booking, error) {
	return r.getForUser(ctx, id, userID, true)
}

func (r *BookingRepo) getForUser(ctx context.Context, id, userID uint64, lock bool) (model.Booking, error) {
	qb := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}).
		Limit(1)
	if lock {
		qb = qb.Suffix("FOR UPDATE")
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return model.Booking{}, fmt.Errorf("get booking: build query: %w", err)
	}
	b, err := scanBooking(database.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// ListByUser returns a page of the user's bookings, newest first.  Rows
// created in the same instant are ordered by id so paging is stable.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Booking, error) {
	query, args, err := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("list bookings: build query: %w", err)
	}
	rows, err := database.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	out := make([]model.Booking, 0, limit)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

// LatestActive returns the most recently created active booking of the
// user, or nil when there is none.
func (r *BookingRepo) LatestActive(ctx context.Context, userID uint64) (*model.Booking, error) {
	query, args, err := sq.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"status": string(model.BookingActive)}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("latest active booking: build query: %w", err)
	}
	b, err := scanBooking(database.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest active booking: %w", err)
	}
	return &b, nil
}

// Close moves an active booking into a terminal status and stores the final
// duration and amount.  ErrStateConflict means the booking was not active.
func (r *BookingRepo) Close(ctx context.Context, id uint64, status model.BookingStatus, exitTime time.Time, durationMinutes, amount int64) error {
	return r.update(ctx, "close booking",
		sq.Update("bookings").
			Set("status", string(status)).
			Set("exit_time", exitTime.UTC()).
			Set("duration_minutes", durationMinutes).
			Set("amount", amount).
			Where(sq.Eq{"id": id}).
			Where(sq.Eq{"status": string(model.BookingActive)}),
	)
}

// Cancel moves an active booking to cancelled and stamps its exit time.
// Duration and amount keep the estimate taken at booking time.
func (r *BookingRepo) Cancel(ctx context.Context, id uint64, exitTime time.Time) error {
	return r.update(ctx, "cancel booking",
		sq.Update("bookings").
			Set("status", string(model.BookingCancelled)).
			Set("exit_time", exitTime.UTC()).
			Where(sq.Eq{"id": id}).
			Where(sq.Eq{"status": string(model.BookingActive)}),
	)
}

// SetOrderID stores the latest gateway order id.  Bookings whose payment
// already completed are left untouched and yield ErrStateConflict.
func (r *BookingRepo) SetOrderID(ctx context.Context, id uint64, orderID string) error {
	return r.update(ctx, "set order id",
		sq.Update("bookings").
			Set("order_id", orderID).
			Where(sq.Eq{"id": id}).
			Where(sq.NotEq{"payment_status": string(model.PaymentCompleted)}),
	)
}

// MarkPaid records a verified payment.  Completed is terminal, so a booking
// that is already paid yields ErrStateConflict.
func (r *BookingRepo) MarkPaid(ctx context.Context, id uint64, paymentID string) error {
	return r.update(ctx, "mark paid",
		sq.Update("bookings").
			Set("payment_status", string(model.PaymentCompleted)).
			Set("payment_id", paymentID).
			Where(sq.Eq{"id": id}).
			Where(sq.NotEq{"payment_status": string(model.PaymentCompleted)}),
	)
}

// MarkPaymentFailed records a failed verification unless the booking is
// already paid, in which case ErrStateConflict is returned.
func (r *BookingRepo) MarkPaymentFailed(ctx context.Context, id uint64) error {
	return r.update(ctx, "mark payment failed",
		sq.Update("bookings").
			Set("payment_status", string(model.PaymentFailed)).
			Where(sq.Eq{"id": id}).
			Where(sq.NotEq{"payment_status": string(model.PaymentCompleted)}),
	)
}

func (r *BookingRepo) update(ctx context.Context, op string, qb sq.UpdateBuilder) error {
	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                     model.Booking
		vt, status, payStatus string
		exitTime              sql.NullTime
		orderID, paymentID    sql.NullString
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleNumber, &vt, &b.SlotCode,
		&b.EntryTime, &exitTime, &b.DurationMinutes, &b.Amount, &status,
		&payStatus, &orderID, &paymentID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.VehicleType = model.VehicleType(vt)
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(payStatus)
	if exitTime.Valid {
		t := exitTime.Time.UTC()
		b.ExitTime = &t
	}
	if orderID.Valid {
		b.OrderID = &orderID.String
	}
	if paymentID.Valid {
		b.PaymentID = &paymentID.String
	}
	return b, nil
}
