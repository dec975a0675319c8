// Package ratelimit implements fixed-window, sliding-window, and
// token-bucket rate-limiting strategies backed by a CAS-persisted KV
// store, so limiter state survives across process instances.
package ratelimit

import (
	"time"

	"github.com/arbengine/fundarb/internal/log"
	"github.com/arbengine/fundarb/internal/store/kv"
)

// Decision is returned by every strategy's Allow call.
type Decision struct {
	Allowed           bool
	Remaining         int
	ResetAt           time.Time
	RetryAfterSeconds int
}

// maxCASRetries bounds the read-modify-write retry loop under contention.
const maxCASRetries = 5

var logger = log.Component("ratelimit")

// failOpen is returned whenever the backing store errors out. A limiter
// must never be the reason a request gets rejected with a server error,
// so store failures allow the request through and log a warning instead.
func failOpen(scope string, err error) Decision {
	logger.Warn().Err(err).Str("scope", scope).Msg("rate limiter store error, failing open")
	return Decision{Allowed: true}
}

// Limiter bundles all three strategies over a shared store.
type Limiter struct {
	store kv.Store
}

func New(store kv.Store) *Limiter {
	return &Limiter{store: store}
}
