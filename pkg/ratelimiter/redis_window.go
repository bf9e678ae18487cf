package ratelimiter

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisFixedWindow implements RateLimiter with a fixed window counter kept in
// Redis, so the quota holds across multiple API instances. The window key
// expires on its own; INCR on a fresh key starts a new window.
type RedisFixedWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisFixedWindow creates a RedisFixedWindow.
func NewRedisFixedWindow(client *redis.Client, limit int, window time.Duration) *RedisFixedWindow {
	return &RedisFixedWindow{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:",
	}
}

// Allow increments the client's window counter and checks it against the
// limit. If Redis is unreachable the request is allowed: admission control
// should not take the prediction API down with it.
func (r *RedisFixedWindow) Allow(ctx context.Context, clientID string) bool {
	key := r.prefix + clientID

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		// First request of the window, start its expiry clock.
		r.client.Expire(ctx, key, r.window)
	}
	return count <= int64(r.limit)
}
