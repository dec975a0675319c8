package venue

import (
	"context"

	"golang.org/x/time/rate"
)

// hostLimiter is the in-process per-venue token bucket plus a bounded
// concurrency gate, so one adapter never floods its venue faster than
// the venue's own published rate limits allow.
type hostLimiter struct {
	tokens   *rate.Limiter
	inFlight chan struct{}
}

func newHostLimiter(rps float64, burst, maxConcurrent int) *hostLimiter {
	return &hostLimiter{
		tokens:   rate.NewLimiter(rate.Limit(rps), burst),
		inFlight: make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks (respecting ctx) until both a token and a concurrency
// slot are available, returning a release function.
func (h *hostLimiter) Acquire(ctx context.Context) (func(), error) {
	if err := h.tokens.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case h.inFlight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-h.inFlight }, nil
}
