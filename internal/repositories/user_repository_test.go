package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalhub/internal/models"
)

var userCols = []string{
	"id", "email", "name", "avatar_url", "role", "password_hash",
	"push_token", "refresh_token", "refresh_expires_at", "created_at",
}

func TestUserRepository_Create_AssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "a@example.com", "Alice", "", "tenant", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	u := &models.User{Email: "a@example.com", Name: "Alice", Role: "tenant", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, now, u.CreatedAt)
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.User{Email: "a@example.com"})
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "a@example.com", "Alice", "", "landlord", "hash", "ExponentPushToken[x]", nil, nil, now))

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "landlord", u.Role)
	require.NotNil(t, u.PushToken)
	assert.Equal(t, "ExponentPushToken[x]", *u.PushToken)
	assert.Nil(t, u.RefreshToken)
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByEmail(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUserRepository_UpdatePushToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	token := "ExponentPushToken[abc]"

	mock.ExpectExec(`UPDATE users SET push_token = \$1 WHERE id = \$2`).
		WithArgs(token, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET push_token = \$1 WHERE id = \$2`).
		WithArgs(nil, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePushToken(context.Background(), "u1", &token))

	err := repo.UpdatePushToken(context.Background(), "missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetPushTargets(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`WHERE id = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "push_token"}).
			AddRow("bob", "Bob", "bob@example.com", "").
			AddRow("carol", "Carol", "carol@example.com", "tok-c"))

	targets, err := repo.GetPushTargets(context.Background(), []string{"bob", "carol"})
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Empty(t, targets[0].PushToken)
	assert.Equal(t, "tok-c", targets[1].PushToken)

	none, err := repo.GetPushTargets(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_RotateRefresh_Expired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`UPDATE users\s+SET refresh_token`).
		WithArgs("new", sqlmock.AnyArg(), "old").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.RotateRefresh(context.Background(), "old", "new", time.Now().Add(time.Hour))
	assert.True(t, errors.Is(err, ErrNotFound))
}
