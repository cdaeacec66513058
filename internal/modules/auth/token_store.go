package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
)

// TokenStore keeps single-use password reset tokens.
type TokenStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// Consume returns the owner of token and deletes it.
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}

type redisTokenStore struct {
	rdb *redis.Client
}

// NewRedisTokenStore stores tokens under password_reset:<token>.
func NewRedisTokenStore(rdb *redis.Client) TokenStore {
	return &redisTokenStore{rdb: rdb}
}

func resetKey(token string) string { return "password_reset:" + token }

func (s *redisTokenStore) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, resetKey(token), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

func (s *redisTokenStore) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := s.rdb.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, apperr.Invalid("reset link is invalid or has expired")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("consume reset token: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt reset token value: %w", err)
	}
	return id, nil
}
