// Package ratelimit caps how often a user may start paid generation actions.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "promoshot:ratelimit:"

type store interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Result of a single rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed one-minute window counter stored in Redis.
type Limiter struct {
	client    store
	perMinute int
	log       *slog.Logger
	now       func() time.Time
}

func New(client *redis.Client, perMinute int, log *slog.Logger) *Limiter {
	return newLimiter(client, perMinute, log)
}

func newLimiter(client store, perMinute int, log *slog.Logger) *Limiter {
	return &Limiter{client: client, perMinute: perMinute, log: log, now: time.Now}
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Allow counts one request for key. Redis errors fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if l.perMinute <= 0 {
		return Result{Allowed: true, Remaining: -1}, nil
	}

	now := l.now()
	window := now.Unix() / 60
	redisKey := fmt.Sprintf("%s%s:%d", keyPrefix, key, window)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Warn("rate limit check failed, allowing request", "err", err)
		return Result{Allowed: true, Remaining: l.perMinute}, nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, 2*time.Minute).Err(); err != nil {
			l.log.Warn("failed to set rate limit expiry", "err", err, "key", redisKey)
		}
	}

	if count > int64(l.perMinute) {
		resetAt := time.Unix((window+1)*60, 0)
		return Result{Allowed: false, RetryAfter: resetAt.Sub(now)}, nil
	}
	return Result{Allowed: true, Remaining: l.perMinute - int(count)}, nil
}
