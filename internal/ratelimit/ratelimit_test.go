package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	store := newFakeStore()
	l := newLimiter(store, 2, discardLogger())
	l.now = func() time.Time { return time.Unix(600, 0).Add(45 * time.Second) }

	res, err := l.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, _ = l.Allow(context.Background(), "user-1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, _ = l.Allow(context.Background(), "user-1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 15*time.Second, res.RetryAfter)

	res, _ = l.Allow(context.Background(), "user-2")
	assert.True(t, res.Allowed)

	assert.Len(t, store.expires, 2)
}

func TestLimiter_NewWindowResets(t *testing.T) {
	store := newFakeStore()
	l := newLimiter(store, 1, discardLogger())
	now := time.Unix(600, 0)
	l.now = func() time.Time { return now }

	res, _ := l.Allow(context.Background(), "user-1")
	assert.True(t, res.Allowed)
	res, _ = l.Allow(context.Background(), "user-1")
	assert.False(t, res.Allowed)

	now = now.Add(time.Minute)
	res, _ = l.Allow(context.Background(), "user-1")
	assert.True(t, res.Allowed)
}

func TestLimiter_FailsOpen(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	l := newLimiter(store, 1, discardLogger())

	res, err := l.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l := newLimiter(newFakeStore(), 0, discardLogger())
	res, err := l.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
