package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/parking-slot-reservation/internal/database"
)

// TokenRepo stores refresh tokens by their SHA-256 hash.  A token is usable
// while it is neither revoked nor expired; revocation only ever stamps
// revoked_at, rows are kept for auditing.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	query, args, err := sq.Insert("refresh_tokens").
		Columns("user_id", "token_hash", "expires_at").
		Values(userID, tokenHash, exp.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("store refresh token: build query: %w", err)
	}
	if _, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// ValidateRefresh returns the owner of a usable token, ErrNotFound when the
// hash is unknown, revoked or expired.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	query, args, err := sq.Select("user_id").
		From("refresh_tokens").
		Where(sq.Eq{"token_hash": tokenHash}).
		Where(sq.Eq{"revoked_at": nil}).
		Where(sq.Gt{"expires_at": r.now()}).
		Limit(1).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("validate refresh token: build query: %w", err)
	}
	var userID uint64
	err = database.GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("validate refresh token: %w", err)
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.  Revoking twice is a no-op.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, "revoke refresh token", sq.Eq{"token_hash": tokenHash})
}

// RevokeAllForUser revokes every usable token of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	return r.revoke(ctx, "revoke refresh tokens", sq.Eq{"user_id": userID})
}

func (r *TokenRepo) revoke(ctx context.Context, op string, where sq.Eq) error {
	query, args, err := sq.Update("refresh_tokens").
		Set("revoked_at", r.now()).
		Where(where).
		Where(sq.Eq{"revoked_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: build query: %w", op, err)
	}
	if _, err := database.GetExecutor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
