package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepoCreate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users \(email,name,password_hash\) VALUES \(\?,\?,\?\)`).
		WithArgs("asha@example.com", "Asha", "hash").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := NewUserRepo(db)
	id, err := repo.Create(context.Background(), " Asha@Example.com ", " Asha ", "hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	_, err = repo.Create(context.Background(), "asha@example.com", "Asha", "hash")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepoGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "name", "password_hash", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT id, email, name, password_hash, is_active, created_at, updated_at FROM users WHERE email = \? LIMIT 1`).
		WithArgs("asha@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, "asha@example.com", "Asha", "hash", true, now, now))
	mock.ExpectQuery(`FROM users WHERE id = \? LIMIT 1`).
		WithArgs(uint64(8)).
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewUserRepo(db)
	u, err := repo.GetByEmail(context.Background(), "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	assert.True(t, u.IsActive)

	_, err = repo.GetByID(context.Background(), 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepoLifecycle(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewTokenRepo(db)
	repo.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO refresh_tokens \(user_id,token_hash,expires_at\) VALUES \(\?,\?,\?\)`).
		WithArgs(uint64(7), "h1", now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens WHERE token_hash = \? AND revoked_at IS NULL AND expires_at > \? LIMIT 1`).
		WithArgs("h1", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = \? WHERE token_hash = \? AND revoked_at IS NULL`).
		WithArgs(now, "h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("h1", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = \? WHERE user_id = \? AND revoked_at IS NULL`).
		WithArgs(now, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	ctx := context.Background()
	require.NoError(t, repo.StoreRefresh(ctx, 7, "h1", now.Add(time.Hour)))
	uid, err := repo.ValidateRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)
	require.NoError(t, repo.RevokeByHash(ctx, "h1"))
	_, err = repo.ValidateRefresh(ctx, "h1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, repo.RevokeAllForUser(ctx, 7))
}
