package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arbengine/fundarb/internal/store/kv"
)

func TestFixedWindow_AllowsUpToLimit(t *testing.T) {
	l := New(kv.NewMemory())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := l.AllowFixedWindow(ctx, "scopeA", 3, time.Minute)
		assert.True(t, d.Allowed, "request %d should be allowed", i)
	}

	d := l.AllowFixedWindow(ctx, "scopeA", 3, time.Minute)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfterSeconds, 0)
}

func TestSlidingWindow_AllowsUpToLimit(t *testing.T) {
	l := New(kv.NewMemory())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d := l.AllowSlidingWindow(ctx, "scopeB", 2, time.Minute)
		assert.True(t, d.Allowed)
	}
	d := l.AllowSlidingWindow(ctx, "scopeB", 2, time.Minute)
	assert.False(t, d.Allowed)
}

func TestTokenBucket_ConsumesCapacity(t *testing.T) {
	l := New(kv.NewMemory())
	ctx := context.Background()

	// capacity 2, slow refill: both initial tokens are spent immediately.
	assert.True(t, l.AllowTokenBucket(ctx, "scopeC", 2, 0.001).Allowed)
	assert.True(t, l.AllowTokenBucket(ctx, "scopeC", 2, 0.001).Allowed)
	assert.False(t, l.AllowTokenBucket(ctx, "scopeC", 2, 0.001).Allowed)
}

func TestTokenBucket_DeniesWhenEmpty(t *testing.T) {
	l := New(kv.NewMemory())
	ctx := context.Background()

	assert.True(t, l.AllowTokenBucket(ctx, "scopeD", 1, 0.001).Allowed)
	d := l.AllowTokenBucket(ctx, "scopeD", 1, 0.001)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfterSeconds, 0)
}

func TestFixedWindow_FailsOpenOnStoreError(t *testing.T) {
	l := New(erroringStore{})
	d := l.AllowFixedWindow(context.Background(), "scopeE", 1, time.Minute)
	assert.True(t, d.Allowed, "limiter must fail open on store error")
}

// erroringStore simulates a transient KV outage for the fail-open test.
type erroringStore struct{ kv.Store }

func (erroringStore) Get(ctx context.Context, key string, v any) (bool, error) {
	return false, assertErr
}

var assertErr = &storeErr{"simulated store outage"}

type storeErr struct{ msg string }

func (e *storeErr) Error() string { return e.msg }
