package venue

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/arbengine/fundarb/internal/apperr"
)

// Adapter is the contract every venue implements. Only read-only
// operations are exposed — placing or managing orders is out of scope.
type Adapter interface {
	Venue() string
	GetFundingRate(ctx context.Context, pair string) (*FundingRate, error)
	GetFundingRates(ctx context.Context, pairs []string) ([]FundingRate, error)
	GetTakerFee(ctx context.Context, pair string) (*FeeSchedule, error)
	GetOrderBookTop(ctx context.Context, pair string) (*OrderBookTop, error)
	Capabilities() CapabilitySet
	Health(ctx context.Context) error
}

// client is the venue-specific wire-format fetcher that each exchange
// implementation (binance.go, okx.go, kraken.go, coinbase.go) supplies.
// Splitting this out of guardedAdapter keeps the resilience plumbing
// (limiter, breaker, capability gating, error mapping) identical across
// venues while letting each venue's JSON shape differ.
type client interface {
	fetchFunding(ctx context.Context, pair string) (FundingRate, error)
	fetchFee(ctx context.Context, pair string) (FeeSchedule, error)
	fetchOrderBook(ctx context.Context, pair string) (OrderBookTop, error)
	fetchSymbols(ctx context.Context) ([]string, error)
}

// guardedAdapter is the common Adapter implementation: every call goes
// through the per-venue token bucket, then the circuit breaker, then the
// venue-specific client, with errors mapped to the closed taxonomy.
type guardedAdapter struct {
	name      string
	client    client
	limiter   *hostLimiter
	breaker   *gobreaker.CircuitBreaker
	caps      CapabilitySet
	catalogue catalogueCache
}

func newGuardedAdapter(name string, c client, caps CapabilitySet, rps float64, burst, maxConcurrent int) *guardedAdapter {
	return &guardedAdapter{
		name:    name,
		client:  c,
		limiter: newHostLimiter(rps, burst, maxConcurrent),
		breaker: newBreaker(name),
		caps:    caps,
	}
}

func (g *guardedAdapter) Venue() string { return g.name }

func (g *guardedAdapter) Capabilities() CapabilitySet { return g.caps }

func (g *guardedAdapter) GetFundingRate(ctx context.Context, pair string) (*FundingRate, error) {
	if !g.caps.Has(CapFunding) {
		return nil, NewError(g.name, pair, NotSupported, errors.New("funding rate not supported"))
	}

	release, err := g.limiter.Acquire(ctx)
	if err != nil {
		return nil, NewError(g.name, pair, NetworkTimeout, err)
	}
	defer release()

	result, err := g.breaker.Execute(func() (any, error) {
		fr, err := g.client.fetchFunding(ctx, pair)
		return fr, err
	})
	if err != nil {
		return nil, mapBreakerErr(g.name, pair, err)
	}
	fr := result.(FundingRate)
	return &fr, nil
}

func (g *guardedAdapter) GetFundingRates(ctx context.Context, pairs []string) ([]FundingRate, error) {
	out := make([]FundingRate, 0, len(pairs))
	for _, p := range pairs {
		fr, err := g.GetFundingRate(ctx, p)
		if err != nil {
			continue // per-pair failures are excluded, never abort the whole batch
		}
		out = append(out, *fr)
	}
	return out, nil
}

func (g *guardedAdapter) GetTakerFee(ctx context.Context, pair string) (*FeeSchedule, error) {
	if !g.caps.Has(CapFees) {
		return nil, NewError(g.name, pair, NotSupported, errors.New("taker fee not supported"))
	}

	release, err := g.limiter.Acquire(ctx)
	if err != nil {
		return nil, NewError(g.name, pair, NetworkTimeout, err)
	}
	defer release()

	result, err := g.breaker.Execute(func() (any, error) {
		return g.client.fetchFee(ctx, pair)
	})
	if err != nil {
		return nil, mapBreakerErr(g.name, pair, err)
	}
	fee := result.(FeeSchedule)
	return &fee, nil
}

func (g *guardedAdapter) GetOrderBookTop(ctx context.Context, pair string) (*OrderBookTop, error) {
	if !g.caps.Has(CapOrderBook) {
		return nil, NewError(g.name, pair, NotSupported, errors.New("order book not supported"))
	}

	release, err := g.limiter.Acquire(ctx)
	if err != nil {
		return nil, NewError(g.name, pair, NetworkTimeout, err)
	}
	defer release()

	result, err := g.breaker.Execute(func() (any, error) {
		return g.client.fetchOrderBook(ctx, pair)
	})
	if err != nil {
		return nil, mapBreakerErr(g.name, pair, err)
	}
	book := result.(OrderBookTop)
	return &book, nil
}

func (g *guardedAdapter) Health(ctx context.Context) error {
	if syms, ok := g.catalogue.get(); ok && len(syms) > 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	syms, err := g.client.fetchSymbols(ctx)
	if err != nil {
		return mapBreakerErr(g.name, "", err)
	}
	g.catalogue.set(syms)
	return nil
}

func mapBreakerErr(venueName, pair string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewError(venueName, pair, ExchangeError, err)
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}
	return NewError(venueName, pair, Unknown, err)
}

// ToAppErr converts a venue.Error into the module-wide apperr taxonomy
// for HTTP/analytics surfaces that don't care about venue specifics.
func ToAppErr(err error) *apperr.E {
	var ve *Error
	if errors.As(err, &ve) {
		if ve.Code.Retryable() {
			return apperr.Transient(ve.Error(), ve.Cause)
		}
		return apperr.Exchange(ve.Error(), ve.Cause)
	}
	return apperr.Internalf("venue error", err)
}
