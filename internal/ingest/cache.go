package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache remembers pair estimates so re-running a batch does not re-bill the
// estimator for pairs it already answered.
type Cache interface {
	Get(ctx context.Context, fromID, toID int) (Estimate, bool)
	Put(ctx context.Context, fromID, toID int, est Estimate)
}

// RedisCache is the production Cache. Lookup failures are treated as
// misses; writes are best-effort.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(fromID, toID int) string {
	return fmt.Sprintf("tripnav:est:%d:%d", fromID, toID)
}

func (c *RedisCache) Get(ctx context.Context, fromID, toID int) (Estimate, bool) {
	data, err := c.rdb.Get(ctx, cacheKey(fromID, toID)).Bytes()
	if err != nil {
		return Estimate{}, false
	}
	var est Estimate
	if err := json.Unmarshal(data, &est); err != nil {
		return Estimate{}, false
	}
	return est, true
}

func (c *RedisCache) Put(ctx context.Context, fromID, toID int, est Estimate) {
	data, err := json.Marshal(est)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, cacheKey(fromID, toID), data, c.ttl).Err()
}
