// Package auth signs users in and runs the password reset flow.
package auth

import (
	"context"
	"time"

	"github.com/foodrient/foodrient-backend/internal/modules/user"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login checks credentials and issues an access token.
	Login(ctx context.Context, req LoginRequest) (*Session, error)

	// RequestPasswordReset emails a reset link when the address belongs to an
	// account. Unknown addresses succeed silently.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword consumes a reset token and sets a new password.
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

// Session is returned by a successful login.
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}
