package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
	"github.com/foodrient/foodrient-backend/internal/platform/mailer"
)

const resetTTL = 30 * time.Minute

// Users is the part of the user service auth needs.
type Users interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
}

type service struct {
	users     Users
	issuer    *authz.Issuer
	tokens    TokenStore
	mail      mailer.Sender
	templates *mailer.Templates
}

// NewService creates a new auth service.
func NewService(users Users, issuer *authz.Issuer, tokens TokenStore, mail mailer.Sender, templates *mailer.Templates) Service {
	return &service{users: users, issuer: issuer, tokens: tokens, mail: mail, templates: templates}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	u, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.issuer.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := newToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Save(ctx, token, u.ID, resetTTL); err != nil {
		return err
	}

	msg, err := s.templates.PasswordReset(u.Email, token, "30 minutes")
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		logger.FromContext(ctx).Warn("password reset email failed", zap.String("user_id", u.ID.String()), zap.Error(err))
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if len(req.NewPassword) < user.MinPasswordLength {
		return apperr.Invalid("password must be at least %d characters", user.MinPasswordLength)
	}
	userID, err := s.tokens.Consume(ctx, req.Token)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, userID, req.NewPassword)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
