package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rentalhub/internal/authz"
	"rentalhub/internal/models"
	"rentalhub/internal/repositories"
	"rentalhub/internal/utils"
)

// Tokens is the pair handed out on login and refresh.
type Tokens struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
}

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePushToken(ctx context.Context, userID, token string) error
}

type userService struct {
	repo       repositories.UserRepository
	auth       AuthService
	refreshTTL time.Duration
	log        *zap.Logger
}

func NewUserService(repo repositories.UserRepository, auth AuthService, refreshTTL time.Duration, log *zap.Logger) UserService {
	return &userService{repo: repo, auth: auth, refreshTTL: refreshTTL, log: log}
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = authz.RoleTenant
	}
	if !authz.IsValidSignupRole(role) {
		return nil, ErrInvalidRole
	}
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	user := &models.User{
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", role))
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, *Tokens, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !s.auth.CheckPassword(user.PasswordHash, password) {
		s.log.Info("login rejected", zap.String("user_id", user.ID))
		return nil, nil, ErrInvalidCredentials
	}
	tokens, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	newRT, err := utils.NewRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "new refresh token")
	}
	user, err := s.repo.RotateRefresh(ctx, strings.TrimSpace(refreshToken), newRT, time.Now().Add(s.refreshTTL))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	access, exp, err := s.auth.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, "sign access token")
	}
	return &Tokens{AccessToken: access, AccessExpiresAt: exp, RefreshToken: newRT}, nil
}

func (s *userService) issue(ctx context.Context, user *models.User) (*Tokens, error) {
	access, exp, err := s.auth.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, errors.Wrap(err, "sign access token")
	}
	rt, err := utils.NewRefreshToken()
	if err != nil {
		return nil, errors.Wrap(err, "new refresh token")
	}
	if err := s.repo.UpdateRefresh(ctx, user.ID, rt, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, AccessExpiresAt: exp, RefreshToken: rt}, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdatePushToken stores the device token; an empty token clears it.
func (s *userService) UpdatePushToken(ctx context.Context, userID, token string) error {
	var ptr *string
	if t := strings.TrimSpace(token); t != "" {
		ptr = &t
	}
	err := s.repo.UpdatePushToken(ctx, userID, ptr)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
