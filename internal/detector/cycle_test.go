package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arbengine/fundarb/internal/money"
)

func TestPriorityScore_ClampsToTenAndZero(t *testing.T) {
	threshold := mustRate(t, 0.0005)

	assert.Equal(t, 10.0, priorityScore(mustRate(t, 0.01), threshold))
	assert.InDelta(t, 2.2, priorityScore(mustRate(t, 0.0011), threshold), 0.01)
}

func TestPair_SkipsWhenFeeMissing(t *testing.T) {
	c := &Cycle{cfg: Config{
		MonitoredPairs:  []string{"BTC-USD-PERP"},
		MonitoredVenues: []string{"a", "b"},
		Threshold:       mustRate(t, 0.0005),
	}}

	rates := map[string]map[string]rateEntry{
		"BTC-USD-PERP": {
			"a": {rate: mustRate(t, 0.0005), ok: true},
			"b": {rate: mustRate(t, -0.0010), ok: true},
		},
	}
	fees := map[string]map[string]feeEntry{
		"BTC-USD-PERP": {
			"a": {taker: mustRate(t, 0.0010), ok: true},
			// "b" fee intentionally missing
		},
	}

	opps := c.pair(rates, fees, time.Now())
	assert.Empty(t, opps)
}

func TestPair_EmitsWhenNetDiffClearsThreshold(t *testing.T) {
	c := &Cycle{cfg: Config{
		MonitoredPairs:      []string{"BTC-USD-PERP"},
		MonitoredVenues:     []string{"a", "b"},
		Threshold:           mustRate(t, 0.0005),
		OpportunityTTLSeconds: 300,
		MaxRecipientsPerOpp: 500,
	}}

	rates := map[string]map[string]rateEntry{
		"BTC-USD-PERP": {
			"a": {rate: mustRate(t, 0.0005), ok: true},
			"b": {rate: mustRate(t, -0.0010), ok: true},
		},
	}
	fees := map[string]map[string]feeEntry{
		"BTC-USD-PERP": {
			"a": {taker: mustRate(t, 0.0002), ok: true},
			"b": {taker: mustRate(t, 0.0002), ok: true},
		},
	}

	opps := c.pair(rates, fees, time.Now())
	if assert.Len(t, opps, 1) {
		opp := opps[0]
		assert.Equal(t, "b", opp.LongVenue)
		assert.Equal(t, "a", opp.ShortVenue)
		assert.InDelta(t, 2.2, opp.PriorityScore, 0.01)
	}
}

func TestPair_EqualRatesNeverEmit(t *testing.T) {
	c := &Cycle{cfg: Config{
		MonitoredPairs:  []string{"BTC-USD-PERP"},
		MonitoredVenues: []string{"a", "b"},
		Threshold:       mustRate(t, 0),
	}}

	rates := map[string]map[string]rateEntry{
		"BTC-USD-PERP": {
			"a": {rate: mustRate(t, 0.0005), ok: true},
			"b": {rate: mustRate(t, 0.0005), ok: true},
		},
	}
	fees := map[string]map[string]feeEntry{
		"BTC-USD-PERP": {
			"a": {taker: 0, ok: true},
			"b": {taker: 0, ok: true},
		},
	}

	opps := c.pair(rates, fees, time.Now())
	assert.Empty(t, opps)
}

func mustRate(t *testing.T, f float64) money.Rate {
	t.Helper()
	r, err := money.FromFraction(f)
	if err != nil {
		t.Fatalf("FromFraction(%v): %v", f, err)
	}
	return r
}
