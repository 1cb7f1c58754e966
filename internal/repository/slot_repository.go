package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

var slotColumns = []string{
	"id", "slot_number", "floor", "vehicle_type", "is_available",
	"current_booking_id", "created_at", "updated_at",
}

// SlotRepo provides data access to the parking_slots table.  The two state
// changing statements, Reserve and Release, always write is_available and
// current_booking_id together so the occupancy invariant holds row by row.
// Methods join the transaction carried in ctx when there is one.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the provided database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// ListAvailable returns free slots ordered by floor and then slot code.
// When vehicleType is non-nil only slots of that type are returned.
func (r *SlotRepo) ListAvailable(ctx context.Context, vehicleType *model.VehicleType) ([]model.Slot, error) {
	qb := sq.Select(slotColumns...).
		From("parking_slots").
		Where(sq.Eq{"is_available": true})
	if vehicleType != nil {
		qb = qb.Where(sq.Eq{"vehicle_type": string(*vehicleType)})
	}
	query, args, err := qb.OrderBy("floor ASC", "slot_number ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("list available slots: build query: %w", err)
	}
	return r.query(ctx, query, args...)
}

// ListAll returns every slot regardless of availability.
func (r *SlotRepo) ListAll(ctx context.Context) ([]model.Slot, error) {
	query, args, err := sq.Select(slotColumns...).
		From("parking_slots").
		OrderBy("floor ASC", "slot_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("list slots: build query: %w", err)
	}
	return r.query(ctx, query, args...)
}

// GetByCode fetches a slot by its code.  ErrNotFound is returned for
// unknown codes.
func (r *SlotRepo) GetByCode(ctx context.Context, code string) (model.Slot, error) {
	query, args, err := sq.Select(slotColumns...).
		From("parking_slots").
		Where(sq.Eq{"slot_number": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Slot{}, fmt.Errorf("get slot: build query: %w", err)
	}
	s, err := scanSlot(database.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, ErrNotFound
	}
	if err != nil {
		return model.Slot{}, fmt.Errorf("get slot %s: %w", code, err)
	}
	return s, nil
}

// Reserve marks the slot identified by code as taken by bookingID.  The
// update only matches a free slot of the requested vehicle type, so two
// concurrent callers cannot both succeed: the loser sees zero matched rows
// and gets ErrSlotUnavailable.  Unknown codes and type mismatches produce
// the same error.
func (r *SlotRepo) Reserve(ctx context.Context, code string, vehicleType model.VehicleType, bookingID uint64) error {
	query, args, err := sq.Update("parking_slots").
		Set("is_available", false).
		Set("current_booking_id", bookingID).
		Where(sq.Eq{"slot_number": code}).
		Where(sq.Eq{"vehicle_type": string(vehicleType)}).
		Where(sq.Eq{"is_available": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("reserve slot: build query: %w", err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("reserve slot %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve slot %s: rows affected: %w", code, err)
	}
	if n == 0 {
		return ErrSlotUnavailable
	}
	return nil
}

// Release frees the slot and clears its booking reference.  Releasing a
// slot that is already free, or an unknown code, is a no-op; the returned
// flag tells whether a row actually changed.
func (r *SlotRepo) Release(ctx context.Context, code string) (bool, error) {
	query, args, err := sq.Update("parking_slots").
		Set("is_available", true).
		Set("current_booking_id", nil).
		Where(sq.Eq{"slot_number": code}).
		Where(sq.Eq{"is_available": false}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("release slot: build query: %w", err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("release slot %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release slot %s: rows affected: %w", code, err)
	}
	return n > 0, nil
}

// InsertBulk provisions slots in a single statement.  Existing codes keep
// their occupancy and only have floor and vehicle type refreshed, so the
// seeder can be re-run against a live table.
func (r *SlotRepo) InsertBulk(ctx context.Context, slots []model.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	qb := sq.Insert("parking_slots").Columns("slot_number", "floor", "vehicle_type", "is_available")
	for _, s := range slots {
		qb = qb.Values(s.Code, s.Floor, string(s.VehicleType), true)
	}
	query, args, err := qb.
		Suffix("ON DUPLICATE KEY UPDATE floor = VALUES(floor), vehicle_type = VALUES(vehicle_type)").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("insert slots: build query: %w", err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert slots: %w", err)
	}
	return res.RowsAffected()
}

// DeleteFree removes all slots that are not currently occupied.  Used by the
// seeder's reset mode; occupied slots are left alone so no active booking
// loses its slot.
func (r *SlotRepo) DeleteFree(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete("parking_slots").Where(sq.Eq{"is_available": true}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("delete slots: build query: %w", err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete slots: %w", err)
	}
	return res.RowsAffected()
}

func (r *SlotRepo) query(ctx context.Context, query string, args ...any) ([]model.Slot, error) {
	rows, err := database.GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()
	slots := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (model.Slot, error) {
	var (
		s         model.Slot
		vt        string
		bookingID sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.Code, &s.Floor, &vt, &s.IsAvailable, &bookingID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return model.Slot{}, err
	}
	s.VehicleType = model.VehicleType(vt)
	if bookingID.Valid {
		id := uint64(bookingID.Int64)
		s.CurrentBookingID = &id
	}
	return s, nil
}
