package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // не отдаём наружу
	PushToken    *string   `json:"-"` // device token for the notification dispatcher
	CreatedAt    time.Time `json:"created_at"`

	// refresh-хранение в БД
	RefreshToken     *string    `json:"-"`
	RefreshExpiresAt *time.Time `json:"-"`
}

// PushTarget is what the notification fan-out needs to reach a participant.
type PushTarget struct {
	UserID    string
	Name      string
	Email     string
	PushToken string
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}
