package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"rentalhub/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// device push token; nil clears it
	UpdatePushToken(ctx context.Context, userID string, token *string) error
	GetPushTargets(ctx context.Context, userIDs []string) ([]models.PushTarget, error)

	// refresh helpers
	UpdateRefresh(ctx context.Context, userID, token string, expiresAt time.Time) error
	RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, email, name, COALESCE(avatar_url, ''), role, password_hash,
	push_token, refresh_token, refresh_expires_at, created_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		pushToken sql.NullString
		rt        sql.NullString
		rte       sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.PasswordHash,
		&pushToken, &rt, &rte, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	if pushToken.Valid {
		s := pushToken.String
		u.PushToken = &s
	}
	if rt.Valid {
		s := rt.String
		u.RefreshToken = &s
	}
	if rte.Valid {
		t := rte.Time
		u.RefreshExpiresAt = &t
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (id, email, name, avatar_url, role, password_hash)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING created_at
	`
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	err := r.DB.QueryRowContext(ctx, q,
		user.ID, user.Email, user.Name, user.AvatarURL, user.Role, user.PasswordHash,
	).Scan(&user.CreatedAt)
	return wrapErr(err, "create user")
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, wrapErr(err, "get user by id")
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, email))
	if err != nil {
		return nil, wrapErr(err, "get user by email")
	}
	return u, nil
}

func (r *userRepository) UpdatePushToken(ctx context.Context, userID string, token *string) error {
	const q = `UPDATE users SET push_token = $1 WHERE id = $2`
	res, err := r.DB.ExecContext(ctx, q, token, userID)
	if err != nil {
		return wrapErr(err, "update push token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return wrapErr(sql.ErrNoRows, "update push token")
	}
	return nil
}

// GetPushTargets returns contact data for the given users; unknown ids are skipped.
func (r *userRepository) GetPushTargets(ctx context.Context, userIDs []string) ([]models.PushTarget, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const q = `
		SELECT id, name, email, COALESCE(push_token, '')
		FROM users
		WHERE id = ANY($1)
		ORDER BY id
	`
	rows, err := r.DB.QueryContext(ctx, q, pq.Array(userIDs))
	if err != nil {
		return nil, wrapErr(err, "get push targets")
	}
	defer rows.Close()

	var targets []models.PushTarget
	for rows.Next() {
		var t models.PushTarget
		if err := rows.Scan(&t.UserID, &t.Name, &t.Email, &t.PushToken); err != nil {
			return nil, wrapErr(err, "scan push target")
		}
		targets = append(targets, t)
	}
	return targets, wrapErr(rows.Err(), "iterate push targets")
}

func (r *userRepository) UpdateRefresh(ctx context.Context, userID, token string, expiresAt time.Time) error {
	const q = `UPDATE users SET refresh_token = $1, refresh_expires_at = $2 WHERE id = $3`
	_, err := r.DB.ExecContext(ctx, q, token, expiresAt, userID)
	return wrapErr(err, "update refresh token")
}

// RotateRefresh swaps an unexpired refresh token for a new one atomically.
func (r *userRepository) RotateRefresh(ctx context.Context, oldToken, newToken string, newExpiresAt time.Time) (*models.User, error) {
	q := `
		UPDATE users
		SET refresh_token = $1, refresh_expires_at = $2
		WHERE refresh_token = $3 AND refresh_expires_at > now()
		RETURNING ` + userColumns
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, newToken, newExpiresAt, oldToken))
	if err != nil {
		return nil, wrapErr(err, "rotate refresh token")
	}
	return u, nil
}
