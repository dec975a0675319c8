// Package ledger is the append-only analytics writer, with record types
// for detections, distribution attempts, execution outcomes, and
// rate-limit denials, and a retention sweep. Only detections and
// distribution attempts are written by this module's own components;
// execution outcomes and rate-limit denials are recorded only when a
// caller invokes RecordExecution or RecordRateLimitDenial, and none does.
package ledger

import "time"

// EventKind is the closed set of append-only record categories.
type EventKind string

const (
	EventDetection      EventKind = "Detection"
	EventDistribution   EventKind = "Distribution"
	EventExecution      EventKind = "Execution"
	EventRateLimitDenial EventKind = "RateLimitDenial"
)

// DetectionRecord captures one emitted opportunity at detection time.
type DetectionRecord struct {
	ID                string
	OpportunityID     string
	Pair              string
	LongVenue         string
	ShortVenue        string
	NetRateDifference float64
	PriorityScore     float64
	DetectedAt        time.Time
}

// DistributionRecord captures one candidate's eligibility decision for a
// given opportunity, whether or not delivery actually happened.
type DistributionRecord struct {
	ID            string
	OpportunityID string
	UserID        string
	Reason        string
	Delivered     bool
	At            time.Time
}

// ExecutionRecord captures a user-reported trade outcome following an
// opportunity notification. Retained indefinitely.
type ExecutionRecord struct {
	ID            string
	OpportunityID string
	UserID        string
	Outcome       string
	PnLBps        float64
	At            time.Time
}

// RateLimitDenialRecord captures a single denied request for a scope/route.
type RateLimitDenialRecord struct {
	ID       string
	Scope    string
	Route    string
	Strategy string
	At       time.Time
}

// RetentionWindows controls how long detections and distributions are kept
// before the maintenance sweep prunes them. A zero window means retain
// indefinitely. Sweep does not read Executions: execution records are
// always retained, whatever that field holds.
type RetentionWindows struct {
	Detections   time.Duration
	Distributions time.Duration
	Executions   time.Duration
}

// DefaultRetentionWindows matches the retention policy this module ships
// with: detections 30 days, distributions 90 days, executions kept
// indefinitely.
func DefaultRetentionWindows() RetentionWindows {
	return RetentionWindows{
		Detections:    30 * 24 * time.Hour,
		Distributions: 90 * 24 * time.Hour,
	}
}
