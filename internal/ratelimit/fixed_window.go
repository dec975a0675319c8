package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/arbengine/fundarb/internal/store/kv"
)

// AllowFixedWindow implements the fixed-window strategy: key
// rate:{scope}:{floor(now/window)}, counter incremented and capped,
// TTL = 2×window.
func (l *Limiter) AllowFixedWindow(ctx context.Context, scope string, limit int, window time.Duration) Decision {
	now := time.Now()
	floor := now.Unix() / int64(window/time.Second)
	key := kv.RateFixedKey(scope, floor)
	resetAt := time.Unix((floor+1)*int64(window/time.Second), 0)

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var current int
		found, err := l.store.Get(ctx, key, &current)
		if err != nil {
			return failOpen(scope, err)
		}
		if !found {
			current = 0
		}

		if current >= limit {
			return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt, RetryAfterSeconds: int(time.Until(resetAt).Seconds()) + 1}
		}

		var casErr error
		if found {
			casErr = l.store.CompareAndSwap(ctx, key, current, current+1, kv.PutOptions{TTL: 2 * window})
		} else {
			casErr = l.store.CompareAndSwap(ctx, key, nil, 1, kv.PutOptions{TTL: 2 * window})
		}
		if casErr == nil {
			return Decision{Allowed: true, Remaining: limit - (current + 1), ResetAt: resetAt}
		}
		if errors.Is(casErr, kv.ErrNotFound) {
			continue // lost the race, retry with fresh read
		}
		return failOpen(scope, casErr)
	}

	// Exhausted retries under contention: fail open rather than 5xx.
	return failOpen(scope, errors.New("fixed window CAS retries exhausted"))
}
