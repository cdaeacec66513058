package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// CacheTTL bounds how stale a cached entry can be after an edit made
// elsewhere.
const CacheTTL = 10 * time.Minute

// cachedRepo keeps entries looked up by key in Redis. Cache failures fall
// through to the database.
type cachedRepo struct {
	Repository
	rdb *redis.Client
}

// NewCachedRepository wraps repo with a read-through Redis cache.
func NewCachedRepository(repo Repository, rdb *redis.Client) Repository {
	return &cachedRepo{Repository: repo, rdb: rdb}
}

func cacheKey(key string) string { return "content:" + key }

func (c *cachedRepo) GetByKey(ctx context.Context, key string) (*Entry, error) {
	log := logger.FromContext(ctx)
	raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err == nil {
		var e Entry
		if err := json.Unmarshal(raw, &e); err == nil {
			return &e, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warn("content cache read failed", zap.String("key", key), zap.Error(err))
	}

	e, err := c.Repository.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(e); err == nil {
		if err := c.rdb.Set(ctx, cacheKey(key), raw, CacheTTL).Err(); err != nil {
			log.Warn("content cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return e, nil
}

func (c *cachedRepo) Update(ctx context.Context, id uuid.UUID, value json.RawMessage) (*Entry, error) {
	e, err := c.Repository.Update(ctx, id, value)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Del(ctx, cacheKey(e.Key)).Err(); err != nil {
		logger.FromContext(ctx).Warn("content cache evict failed", zap.String("key", e.Key), zap.Error(err))
	}
	return e, nil
}
