package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rentalhub/internal/authz"
	"rentalhub/internal/models"
)

func newUserFixture() (UserService, AuthService, *memUserRepo) {
	repo := newMemUserRepo()
	auth := NewAuthService("test-secret", time.Minute)
	return NewUserService(repo, auth, time.Hour, zap.NewNop()), auth, repo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, auth, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{
		Email: "tenant@example.com", Password: "password123", Name: "Tina",
	})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleTenant, user.Role)

	got, tokens, err := svc.Login(ctx, "tenant@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := auth.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegister_Rejections(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "x@example.com", Password: "password123", Name: "X", Role: authz.RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "x@example.com", Password: "password123", Name: "X"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, models.RegisterRequest{Email: "x@example.com", Password: "password123", Name: "X"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, models.RegisterRequest{Email: "l@example.com", Password: "password123", Name: "L", Role: authz.RoleLandlord})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "l@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, _ := newUserFixture()
	ctx := context.Background()
	_, err := svc.Register(ctx, models.RegisterRequest{Email: "r@example.com", Password: "password123", Name: "R"})
	require.NoError(t, err)
	_, tokens, err := svc.Login(ctx, "r@example.com", "password123")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestUpdatePushToken(t *testing.T) {
	svc, _, repo := newUserFixture()
	ctx := context.Background()
	user, err := svc.Register(ctx, models.RegisterRequest{Email: "p@example.com", Password: "password123", Name: "P"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePushToken(ctx, user.ID, " ExponentPushToken[1] "))
	stored, _ := repo.GetByID(ctx, user.ID)
	require.NotNil(t, stored.PushToken)
	assert.Equal(t, "ExponentPushToken[1]", *stored.PushToken)

	require.NoError(t, svc.UpdatePushToken(ctx, user.ID, ""))
	stored, _ = repo.GetByID(ctx, user.ID)
	assert.Nil(t, stored.PushToken)

	assert.ErrorIs(t, svc.UpdatePushToken(ctx, "ghost", "t"), ErrUserNotFound)
}

func TestAuthService_RejectsForeignAndExpiredTokens(t *testing.T) {
	auth := NewAuthService("secret-a", time.Minute)
	other := NewAuthService("secret-b", time.Minute)

	tok, _, err := auth.IssueAccessToken("u1", authz.RoleTenant)
	require.NoError(t, err)
	_, err = other.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := &authService{key: []byte("secret-a"), accessTTL: time.Minute,
		now: func() time.Time { return time.Now().Add(-time.Hour) }}
	old, _, err := expired.IssueAccessToken("u1", authz.RoleTenant)
	require.NoError(t, err)
	_, err = auth.ParseAccessToken(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ParseAccessToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
