package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/arbengine/fundarb/internal/store/kv"
)

// bucketState is the persisted token-bucket state.
type bucketState struct {
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"last_refill_unix_nano"`
}

// AllowTokenBucket implements the token-bucket strategy: refill by
// elapsed×rate up to capacity, then consume one token. TTL = 1h.
func (l *Limiter) AllowTokenBucket(ctx context.Context, scope string, capacity float64, refillPerSecond float64) Decision {
	key := kv.BucketKey(scope)
	now := time.Now()

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var state bucketState
		found, err := l.store.Get(ctx, key, &state)
		if err != nil {
			return failOpen(scope, err)
		}
		if !found {
			state = bucketState{Tokens: capacity, LastRefill: now.UnixNano()}
		}

		elapsed := now.Sub(time.Unix(0, state.LastRefill)).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		refilled := state.Tokens + elapsed*refillPerSecond
		if refilled > capacity {
			refilled = capacity
		}

		if refilled < 1.0 {
			retryAfter := (1.0 - refilled) / refillPerSecond
			return Decision{Allowed: false, Remaining: 0, RetryAfterSeconds: int(retryAfter) + 1}
		}

		next := bucketState{Tokens: refilled - 1.0, LastRefill: now.UnixNano()}

		var casErr error
		if found {
			casErr = l.store.CompareAndSwap(ctx, key, state, next, kv.PutOptions{TTL: time.Hour})
		} else {
			casErr = l.store.CompareAndSwap(ctx, key, nil, next, kv.PutOptions{TTL: time.Hour})
		}
		if casErr == nil {
			return Decision{Allowed: true, Remaining: int(next.Tokens)}
		}
		if errors.Is(casErr, kv.ErrNotFound) {
			continue
		}
		return failOpen(scope, casErr)
	}

	return failOpen(scope, errors.New("token bucket CAS retries exhausted"))
}
