// Package distribution selects eligible recipients for a detected
// opportunity under fairness, quota, cooldown, and context-safety
// constraints, then hands accepted deliveries to the notification router.
package distribution

import (
	"time"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/profile"
)

// Kind distinguishes an opportunity's notification category for quota and
// permission purposes.
type Kind string

const (
	KindArbitrage Kind = "Arbitrage"
	KindTechnical Kind = "Technical"
)

// Fairness mirrors config.Fairness, kept as its own type so this package
// does not import internal/config directly.
type Fairness struct {
	PerBurst        int
	PerDay          int
	CooldownSeconds int
	TierMultipliers map[string]float64
	ActivityBoost   float64
	GroupMultiplier float64
}

// EligibilityReason names why a candidate was or was not selected, for
// the audit ledger (C9).
type EligibilityReason string

const (
	ReasonEligible           EligibilityReason = "Eligible"
	ReasonSessionInactive    EligibilityReason = "SessionInactive"
	ReasonFocusMismatch      EligibilityReason = "FocusMismatch"
	ReasonPermissionDenied   EligibilityReason = "PermissionDenied"
	ReasonDailyCapExceeded   EligibilityReason = "DailyCapExceeded"
	ReasonCooldownActive     EligibilityReason = "CooldownActive"
	ReasonPairDenied         EligibilityReason = "PairDenied"
	ReasonPairNotAllowListed EligibilityReason = "PairNotAllowListed"
	ReasonAlreadyDelivered   EligibilityReason = "AlreadyDelivered"
	ReasonCapacityExhausted  EligibilityReason = "CapacityExhausted"
	ReasonLedgerConflict     EligibilityReason = "LedgerConflict"
)

// Candidate is a user considered for a given opportunity's distribution.
type Candidate struct {
	UserID           string
	Tier             profile.Tier
	Permissions      access.Set
	SessionActive    bool
	Preferences      profile.Preferences
	RecentlyExecuted bool // drives the activity-boost tiebreak within a tier
	ContextID        string
	IsGroupContext   bool
}

// Ledger is the per (user, UTC date, context) quota/cooldown record.
type Ledger struct {
	UserID                 string    `json:"user_id"`
	Date                   string    `json:"date"` // YYYY-MM-DD
	ContextID              string    `json:"context_id"`
	ReceivedArb            int       `json:"received_arb"`
	ReceivedTech           int       `json:"received_tech"`
	ArbLimit               int       `json:"arb_limit"`
	TechLimit              int       `json:"tech_limit"`
	IsGroupContext         bool      `json:"is_group_context"`
	GroupMultiplierApplied bool      `json:"group_multiplier_applied"`
	LastDeliveryAt         time.Time `json:"last_delivery_at"`
	BurstStartedAt         time.Time `json:"burst_started_at"`
	BurstCount             int       `json:"burst_count"`
}

func (l Ledger) received(kind Kind) int {
	if kind == KindTechnical {
		return l.ReceivedTech
	}
	return l.ReceivedArb
}

func (l Ledger) limit(kind Kind) int {
	if kind == KindTechnical {
		return l.TechLimit
	}
	return l.ArbLimit
}

// DeliveryOutcome is recorded to the analytics ledger (C9) for every
// candidate considered, whether delivered or skipped.
type DeliveryOutcome struct {
	OpportunityID string
	UserID        string
	Reason        EligibilityReason
	Delivered     bool
	At            time.Time
}
