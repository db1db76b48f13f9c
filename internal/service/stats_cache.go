package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
)

const statsGenKey = "taskstats:gen"

// StatsCache keeps per-scope task statistics in Redis for a short TTL.
// Invalidation bumps a generation counter instead of scanning keys; stale
// generations simply expire. A nil cache disables caching entirely.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache builds the cache. Returns nil when client is absent or the
// TTL is non-positive, which callers treat as cache-off.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsCache {
	if client == nil || ttl <= 0 {
		return nil
	}
	return &StatsCache{client: client, ttl: ttl, logger: logger}
}

// Get returns cached stats for the scope, if present.
func (c *StatsCache) Get(ctx context.Context, scope string) (*domain.TaskStats, bool) {
	if c == nil {
		return nil, false
	}
	key, err := c.scopedKey(ctx, scope)
	if err != nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var stats domain.TaskStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("stats cache entry unreadable", zap.Error(err))
		return nil, false
	}
	return &stats, true
}

// Set stores stats for the scope under the current generation.
func (c *StatsCache) Set(ctx context.Context, scope string, stats domain.TaskStats) {
	if c == nil {
		return
	}
	key, err := c.scopedKey(ctx, scope)
	if err != nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.Error(err))
	}
}

// Invalidate bumps the generation, orphaning every cached scope at once.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Incr(ctx, statsGenKey).Err(); err != nil {
		c.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (c *StatsCache) scopedKey(ctx context.Context, scope string) (string, error) {
	gen, err := c.client.Get(ctx, statsGenKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("taskstats:%d:%s", gen, scope), nil
}
