package services

import "errors"

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotChatMember      = errors.New("user is not a member of this chat")
	ErrEmptyMessage       = errors.New("message content is required")
	ErrSelfChat           = errors.New("cannot start a chat with yourself")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRefresh     = errors.New("invalid or expired refresh token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("role must be tenant or landlord")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
