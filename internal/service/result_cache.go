package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepnest/mocktest-backend/internal/config"
	"github.com/prepnest/mocktest-backend/internal/model"
)

const resultCacheTTL = 24 * time.Hour

// RedisResultCache is the read-only consumer of finalized outcomes. It
// caches the full outcome payload so the results page survives a process
// restart, and clears the session's live working keys now that the
// attempt is over.
type RedisResultCache struct {
	rdb *redis.Client
}

// NewRedisResultCache creates a new RedisResultCache.
func NewRedisResultCache(rdb *redis.Client) *RedisResultCache {
	return &RedisResultCache{rdb: rdb}
}

// Present caches outcome and drops the session's live keys.
func (c *RedisResultCache) Present(ctx context.Context, outcome model.SessionOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	id := outcome.SessionID.String()
	if err := c.rdb.Set(ctx, config.CacheKey.SessionResultKey(id), payload, resultCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache result: %w", err)
	}

	c.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(id),
		config.CacheKey.SessionStartKey(id),
		config.CacheKey.SessionDurationKey(id),
	)
	return nil
}

// Lookup returns the cached outcome for sessionID, if present.
func (c *RedisResultCache) Lookup(ctx context.Context, sessionID string) (*model.SessionOutcome, error) {
	payload, err := c.rdb.Get(ctx, config.CacheKey.SessionResultKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read cached result: %w", err)
	}

	var outcome model.SessionOutcome
	if err := json.Unmarshal(payload, &outcome); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &outcome, nil
}
