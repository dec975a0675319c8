// Package detector fetches funding rates and fees across venues, pairs
// them cross-venue, and emits Opportunity candidates net of fees.
package detector

import (
	"time"

	"github.com/arbengine/fundarb/internal/money"
)

// Opportunity is a candidate long/short pairing for a pair across two
// venues, net-profitable after both legs' taker fees at detection time.
type Opportunity struct {
	ID                 string
	Pair               string
	LongVenue          string
	ShortVenue         string
	LongRate           money.Rate
	ShortRate          money.Rate
	GrossDifference    money.Rate
	LongTakerRate      money.Rate
	ShortTakerRate     money.Rate
	TotalFeeRate       money.Rate
	NetRateDifference  money.Rate
	PriorityScore      float64
	DetectedAt         time.Time
	ExpiresAt          time.Time
	MaxRecipients      int
	CurrentRecipients  int
}

// Config carries the knobs the detection cycle runs against.
type Config struct {
	MonitoredVenues          []string
	MonitoredPairs           []string
	Threshold                money.Rate
	DetectionIntervalSeconds int
	OpportunityTTLSeconds    int
	MaxRecipientsPerOpp      int
	MaxInFlightPerSecond     float64
	MaxConcurrent            int
}
