package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/arbengine/fundarb/internal/store/kv"
)

// AllowSlidingWindow implements the sliding-window strategy: a list of
// timestamps per scope, discarding entries older than window, allowing
// when the remaining count is below limit.
func (l *Limiter) AllowSlidingWindow(ctx context.Context, scope string, limit int, window time.Duration) Decision {
	key := kv.SlidingKey(scope)
	now := time.Now()
	cutoff := now.Add(-window)

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var stamps []int64
		found, err := l.store.Get(ctx, key, &stamps)
		if err != nil {
			return failOpen(scope, err)
		}

		kept := stamps[:0:0]
		for _, ts := range stamps {
			if time.Unix(0, ts).After(cutoff) {
				kept = append(kept, ts)
			}
		}

		if len(kept) >= limit {
			oldest := earliest(kept)
			resetAt := time.Unix(0, oldest).Add(window)
			return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt, RetryAfterSeconds: int(time.Until(resetAt).Seconds()) + 1}
		}

		next := append(append([]int64(nil), kept...), now.UnixNano())

		var casErr error
		if found {
			casErr = l.store.CompareAndSwap(ctx, key, stamps, next, kv.PutOptions{TTL: 2 * window})
		} else {
			casErr = l.store.CompareAndSwap(ctx, key, nil, next, kv.PutOptions{TTL: 2 * window})
		}
		if casErr == nil {
			return Decision{Allowed: true, Remaining: limit - len(next), ResetAt: now.Add(window)}
		}
		if errors.Is(casErr, kv.ErrNotFound) {
			continue
		}
		return failOpen(scope, casErr)
	}

	return failOpen(scope, errors.New("sliding window CAS retries exhausted"))
}

func earliest(stamps []int64) int64 {
	if len(stamps) == 0 {
		return time.Now().UnixNano()
	}
	min := stamps[0]
	for _, s := range stamps[1:] {
		if s < min {
			min = s
		}
	}
	return min
}
