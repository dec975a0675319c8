// Package venue provides uniform read-only funding-rate / fee / orderbook
// access across exchanges, each wrapped with a per-venue rate limiter and
// circuit breaker.
package venue

import (
	"time"

	"github.com/arbengine/fundarb/internal/money"
)

// FundingRate is an immutable per-(venue,pair) snapshot.
type FundingRate struct {
	VenueID          string
	Pair             string
	Rate             money.Rate
	FundingTimestamp time.Time
	ObservedAt       time.Time
}

// FeeSchedule carries maker/taker fees for a (venue,pair).
type FeeSchedule struct {
	VenueID    string
	Pair       string
	MakerRate  money.Rate
	TakerRate  money.Rate
	ObservedAt time.Time
}

// OrderBookTop is the optional liquidity-gating snapshot.
type OrderBookTop struct {
	VenueID    string
	Pair       string
	BestBid    float64
	BestAsk    float64
	ObservedAt time.Time
}
