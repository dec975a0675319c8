package detector

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/arbengine/fundarb/internal/log"
	"github.com/arbengine/fundarb/internal/money"
	"github.com/arbengine/fundarb/internal/telemetry"
	"github.com/arbengine/fundarb/internal/venue"
)

var logger = log.Component("detector")

type rateEntry struct {
	rate money.Rate
	ok   bool
}

type feeEntry struct {
	taker money.Rate
	ok    bool
}

// Cycle runs one detection pass over the configured venues and pairs.
type Cycle struct {
	cfg      Config
	registry *venue.Registry
	limiter  *rate.Limiter
	sem      chan struct{}
}

func NewCycle(cfg Config, registry *venue.Registry) *Cycle {
	inFlight := cfg.MaxInFlightPerSecond
	if inFlight <= 0 {
		inFlight = 10
	}
	concurrent := cfg.MaxConcurrent
	if concurrent <= 0 {
		concurrent = 5
	}
	return &Cycle{
		cfg:      cfg,
		registry: registry,
		limiter:  rate.NewLimiter(rate.Limit(inFlight), concurrent),
		sem:      make(chan struct{}, concurrent),
	}
}

// Run executes a full detection cycle, bounded to detectionIntervalSeconds
// minus one second. Outstanding fetches are cancelled at the deadline.
func (c *Cycle) Run(parent context.Context) ([]Opportunity, error) {
	start := time.Now()
	deadline := time.Duration(c.cfg.DetectionIntervalSeconds)*time.Second - time.Second
	if deadline <= 0 {
		deadline = 4 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, deadline)
	defer cancel()

	rates, fees := c.fetchAll(ctx)

	opps := c.pair(rates, fees, start)

	telemetry.DetectionCycleDuration.Observe(time.Since(start).Seconds())
	telemetry.DetectionCyclesTotal.WithLabelValues("completed").Inc()

	return opps, nil
}

// fetchAll concurrently requests funding rate + taker fee for every
// (pair, venue) combination, bounded by the cycle's shared limiter and
// concurrency semaphore. Per-(venue,pair) failures are recorded and
// excluded, never aborting the rest of the cycle.
func (c *Cycle) fetchAll(ctx context.Context) (map[string]map[string]rateEntry, map[string]map[string]feeEntry) {
	rates := make(map[string]map[string]rateEntry, len(c.cfg.MonitoredPairs))
	fees := make(map[string]map[string]feeEntry, len(c.cfg.MonitoredPairs))
	for _, p := range c.cfg.MonitoredPairs {
		rates[p] = make(map[string]rateEntry, len(c.cfg.MonitoredVenues))
		fees[p] = make(map[string]feeEntry, len(c.cfg.MonitoredVenues))
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, pair := range c.cfg.MonitoredPairs {
		for _, venueID := range c.cfg.MonitoredVenues {
			adapter, ok := c.registry.Get(venueID)
			if !ok {
				continue
			}

			wg.Add(1)
			go func(pair, venueID string, adapter venue.Adapter) {
				defer wg.Done()

				if err := c.acquire(ctx); err != nil {
					return
				}
				defer c.release()

				fr, err := adapter.GetFundingRate(ctx, pair)
				mu.Lock()
				if err != nil {
					logger.Warn().Str("venue", venueID).Str("pair", pair).Err(err).Msg("funding rate fetch failed, excluding from cycle")
					telemetry.VenueFetchErrorsTotal.WithLabelValues(venueID, codeOf(err)).Inc()
				} else {
					rates[pair][venueID] = rateEntry{rate: fr.Rate, ok: true}
				}
				mu.Unlock()

				fee, err := adapter.GetTakerFee(ctx, pair)
				mu.Lock()
				if err != nil {
					logger.Warn().Str("venue", venueID).Str("pair", pair).Err(err).Msg("taker fee fetch failed, excluding from cycle")
					telemetry.VenueFetchErrorsTotal.WithLabelValues(venueID, codeOf(err)).Inc()
				} else {
					fees[pair][venueID] = feeEntry{taker: fee.TakerRate, ok: true}
				}
				mu.Unlock()
			}(pair, venueID, adapter)
		}
	}

	wg.Wait()
	return rates, fees
}

func (c *Cycle) acquire(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cycle) release() { <-c.sem }

func codeOf(err error) string {
	var ve *venue.Error
	if ok := asVenueError(err, &ve); ok {
		return string(ve.Code)
	}
	return "Unknown"
}

func asVenueError(err error, target **venue.Error) bool {
	for err != nil {
		if ve, ok := err.(*venue.Error); ok {
			*target = ve
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// pair builds every cross-venue candidate for each monitored pair and
// keeps those that clear the threshold, sorted by priority descending
// with a stable tie-break by detection time then pair name.
func (c *Cycle) pair(rates map[string]map[string]rateEntry, fees map[string]map[string]feeEntry, now time.Time) []Opportunity {
	var out []Opportunity

	for _, p := range c.cfg.MonitoredPairs {
		venueRates := rates[p]
		venueFees := fees[p]

		venues := c.cfg.MonitoredVenues
		for i := 0; i < len(venues); i++ {
			for j := i + 1; j < len(venues); j++ {
				a, b := venues[i], venues[j]
				ra, okA := venueRates[a]
				rb, okB := venueRates[b]
				if !okA || !okB {
					continue
				}

				longVenue, shortVenue := a, b
				longRate, shortRate := ra.rate, rb.rate
				if ra.rate > rb.rate {
					longVenue, shortVenue = b, a
					longRate, shortRate = rb.rate, ra.rate
				}

				if longRate == shortRate {
					continue // equal rates never produce an opportunity
				}

				longFee, okLongFee := venueFees[longVenue]
				shortFee, okShortFee := venueFees[shortVenue]
				if !okLongFee || !okShortFee {
					continue // no "assume zero fee" policy: missing fee skips the pairing
				}

				grossDiff := shortRate - longRate
				totalFees := longFee.taker + shortFee.taker
				netDiff := grossDiff - totalFees

				if netDiff < c.cfg.Threshold || shortRate <= longRate {
					continue
				}

				opp := Opportunity{
					ID:                uuid.NewString(),
					Pair:              p,
					LongVenue:         longVenue,
					ShortVenue:        shortVenue,
					LongRate:          longRate,
					ShortRate:         shortRate,
					GrossDifference:   grossDiff,
					LongTakerRate:     longFee.taker,
					ShortTakerRate:    shortFee.taker,
					TotalFeeRate:      totalFees,
					NetRateDifference: netDiff,
					PriorityScore:     priorityScore(netDiff, c.cfg.Threshold),
					DetectedAt:        now,
					ExpiresAt:         now.Add(time.Duration(c.cfg.OpportunityTTLSeconds) * time.Second),
					MaxRecipients:     c.cfg.MaxRecipientsPerOpp,
				}
				out = append(out, opp)
				telemetry.OpportunitiesEmittedTotal.WithLabelValues(p).Inc()
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.Before(out[j].DetectedAt)
		}
		return out[i].Pair < out[j].Pair
	})

	return out
}

// priorityScore clamps netDiff/threshold into [0, 10], using decimal
// arithmetic so the displayed score does not drift from binary float
// rounding near common threshold ratios.
func priorityScore(netDiff, threshold money.Rate) float64 {
	if threshold <= 0 {
		return 10
	}
	ratio := decimal.NewFromFloat(netDiff.Float()).Div(decimal.NewFromFloat(threshold.Float()))
	zero := decimal.NewFromInt(0)
	ten := decimal.NewFromInt(10)
	if ratio.LessThan(zero) {
		ratio = zero
	}
	if ratio.GreaterThan(ten) {
		ratio = ten
	}
	f, _ := ratio.Float64()
	return f
}
