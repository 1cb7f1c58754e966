package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/model"
)

var userColumns = []string{"id", "email", "name", "password_hash", "is_active", "created_at", "updated_at"}

// UserRepo persists the accounts bookings are owned by.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts a user with an already hashed password and returns its ID.
// A second account for the same email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, name, passwordHash string) (uint64, error) {
	query, args, err := sq.Insert("users").
		Columns("email", "name", "password_hash").
		Values(NormalizeEmail(email), strings.TrimSpace(name), passwordHash).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("create user: build query: %w", err)
	}
	res, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user: last insert id: %w", err)
	}
	return uint64(id), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, sq.Eq{"email": NormalizeEmail(email)})
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepo) getOne(ctx context.Context, where sq.Eq) (model.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return model.User{}, fmt.Errorf("get user: build query: %w", err)
	}
	var u model.User
	err = database.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
