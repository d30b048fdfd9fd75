package ratelimit

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore shares the window counters across processes. Whenever the
// client is missing or an operation fails, it falls back to its memory
// store so a Redis outage never blocks traffic.
type RedisStore struct {
	client   *redis.Client
	fallback *MemoryStore
	now      func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:   client,
		fallback: NewMemoryStore(),
		now:      time.Now,
	}
}

func (s *RedisStore) Check(ctx context.Context, identifier string, cfg Config) (Result, error) {
	if s.client == nil {
		return s.fallback.Check(ctx, identifier, cfg)
	}

	now := s.now()
	windowMs := cfg.Window.Milliseconds()
	windowIdx := now.UnixMilli() / windowMs
	key := redisKeyPrefix + identifier + ":" + strconv.FormatInt(windowIdx, 10)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[warn] operation=rate_limit_check message=redis unavailable, using memory store: %v", err)
		return s.fallback.Check(ctx, identifier, cfg)
	}

	count := int(incr.Val())
	remaining := cfg.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= cfg.MaxRequests,
		Limit:     cfg.MaxRequests,
		Remaining: remaining,
		ResetAt:   time.UnixMilli((windowIdx + 1) * windowMs),
	}, nil
}
