package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TTL is refreshed on every write.
const TTL = 30 * 24 * time.Hour

// Store persists carts per user.
type Store interface {
	// Load returns an empty cart when the user has none.
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, userID uuid.UUID, c *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore keeps each cart as JSON under cart:<user id>.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func key(userID uuid.UUID) string { return "cart:" + userID.String() }

// stored is the persisted shape; totals are derived on load.
type stored struct {
	Items []Item `json:"items"`
}

func (s *redisStore) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.rdb.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{Items: []Item{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var st stored
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return &Cart{Items: st.Items}, nil
}

func (s *redisStore) Save(ctx context.Context, userID uuid.UUID, c *Cart) error {
	raw, err := json.Marshal(stored{Items: c.Items})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, key(userID), raw, TTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
