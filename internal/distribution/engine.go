package distribution

import (
	"context"
	"sort"
	"time"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/detector"
	"github.com/arbengine/fundarb/internal/log"
	"github.com/arbengine/fundarb/internal/notify"
	"github.com/arbengine/fundarb/internal/profile"
	"github.com/arbengine/fundarb/internal/store/kv"
)

var logger = log.Component("distribution")

// AuditSink records a per-candidate distribution decision for the
// analytics ledger (C9). Implementations should never block selection on
// a slow write; callers may choose to fire-and-forget with their own
// buffering.
type AuditSink interface {
	RecordDistributionAttempt(ctx context.Context, outcome DeliveryOutcome)
}

// Engine selects eligible recipients for a detected opportunity and hands
// accepted deliveries to the notification router.
type Engine struct {
	store    kv.Store
	checker  *access.Checker
	router   *notify.Router
	audit    AuditSink
	fairness Fairness
}

func NewEngine(store kv.Store, checker *access.Checker, router *notify.Router, audit AuditSink, fairness Fairness) *Engine {
	return &Engine{store: store, checker: checker, router: router, audit: audit, fairness: fairness}
}

// Distribute evaluates every candidate for opp in priority order (tier
// weighting, with recently-active users first within a tier) and attempts
// delivery to each, stopping once the opportunity's recipient cap is
// reached. It returns the outcome recorded for every candidate considered.
func (e *Engine) Distribute(ctx context.Context, opp detector.Opportunity, kind Kind, candidates []Candidate, role map[string]profile.Role) []DeliveryOutcome {
	ordered := orderBySelectionStrategy(candidates)

	var outcomes []DeliveryOutcome
	for _, cand := range ordered {
		reason, delivered := e.considerCandidate(ctx, opp, kind, cand, role[cand.UserID])
		outcome := DeliveryOutcome{
			OpportunityID: opp.ID,
			UserID:        cand.UserID,
			Reason:        reason,
			Delivered:     delivered,
			At:            time.Now(),
		}
		outcomes = append(outcomes, outcome)
		if e.audit != nil {
			e.audit.RecordDistributionAttempt(ctx, outcome)
		}
		if reason == ReasonCapacityExhausted {
			break // opportunity is full; no point evaluating remaining candidates
		}
	}
	return outcomes
}

func (e *Engine) considerCandidate(ctx context.Context, opp detector.Opportunity, kind Kind, cand Candidate, role profile.Role) (EligibilityReason, bool) {
	if !cand.SessionActive {
		return ReasonSessionInactive, false
	}
	if !preferencesAllowKind(cand.Preferences, kind) {
		return ReasonFocusMismatch, false
	}

	requiredPermission := access.BasicOpportunities
	if kind == KindTechnical {
		requiredPermission = access.AdvancedAnalytics
	}
	if decision := e.checker.Check(cand.Permissions, role, requiredPermission); !decision.Allowed {
		return ReasonPermissionDenied, false
	}

	if denyListed(cand.Preferences.PairDenyList, opp.Pair) {
		return ReasonPairDenied, false
	}
	if len(cand.Preferences.PairAllowList) > 0 && !allowListed(cand.Preferences.PairAllowList, opp.Pair) {
		return ReasonPairNotAllowListed, false
	}

	claimed, err := TryClaimIdempotencyKey(ctx, e.store, opp.ID, cand.UserID)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", cand.UserID).Msg("idempotency check failed, skipping candidate")
		return ReasonLedgerConflict, false
	}
	if !claimed {
		return ReasonAlreadyDelivered, false
	}

	reason, err := TryRecordDelivery(ctx, e.store, cand.UserID, cand.ContextID, cand.IsGroupContext, kind, cand.Tier, cand.RecentlyExecuted, e.fairness, time.Now())
	if err != nil {
		logger.Warn().Err(err).Str("user_id", cand.UserID).Msg("ledger update failed, skipping candidate")
		return ReasonLedgerConflict, false
	}
	if reason != ReasonEligible {
		return reason, false
	}

	reserved, err := TryReserveRecipientSlot(ctx, e.store, opp.ID, opp.MaxRecipients)
	if err != nil {
		logger.Warn().Err(err).Str("opportunity_id", opp.ID).Msg("capacity reservation failed, skipping candidate")
		return ReasonLedgerConflict, false
	}
	if !reserved {
		return ReasonCapacityExhausted, false
	}

	e.deliver(ctx, opp, cand)
	return ReasonEligible, true
}

func (e *Engine) deliver(ctx context.Context, opp detector.Opportunity, cand Candidate) {
	payload := notify.Payload{
		Text: renderOpportunity(opp),
		Detail: map[string]any{
			"opportunity_id": opp.ID,
			"pair":           opp.Pair,
			"long_venue":     opp.LongVenue,
			"short_venue":    opp.ShortVenue,
		},
	}

	channel := notify.ChannelPrivate
	kind := notify.KindTradeOpportunity
	if cand.IsGroupContext {
		channel = notify.ChannelGroup
		kind = notify.KindPublicSummary
		payload = notify.DemoteForGroup(payload) // group contexts never see trade specifics
	}

	if err := e.router.Send(ctx, cand.UserID, channel, kind, payload); err != nil {
		logger.Warn().Err(err).Str("user_id", cand.UserID).Str("opportunity_id", opp.ID).Msg("delivery failed after retries")
	}
}

func renderOpportunity(opp detector.Opportunity) string {
	return opp.Pair + ": long " + opp.LongVenue + " / short " + opp.ShortVenue
}

func preferencesAllowKind(p profile.Preferences, kind Kind) bool {
	switch kind {
	case KindTechnical:
		return p.TradingFocus == profile.FocusTechnical || p.TradingFocus == profile.FocusHybrid
	default:
		return p.TradingFocus == profile.FocusArbitrage || p.TradingFocus == profile.FocusHybrid
	}
}

func denyListed(list []string, pair string) bool {
	for _, p := range list {
		if p == pair {
			return true
		}
	}
	return false
}

func allowListed(list []string, pair string) bool {
	for _, p := range list {
		if p == pair {
			return true
		}
	}
	return false
}

// orderBySelectionStrategy sorts candidates by tier weight (highest first),
// placing recently-active users ahead of otherwise-equal peers in the same
// tier, then by user ID. It is one stable sort: the order does not rotate
// between calls (no round-robin), and there is no separate re-admission
// pass.
func orderBySelectionStrategy(candidates []Candidate) []Candidate {
	ordered := append([]Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		wi, wj := tierWeight(ordered[i].Tier), tierWeight(ordered[j].Tier)
		if wi != wj {
			return wi > wj
		}
		if ordered[i].RecentlyExecuted != ordered[j].RecentlyExecuted {
			return ordered[i].RecentlyExecuted
		}
		return ordered[i].UserID < ordered[j].UserID
	})
	return ordered
}

func tierWeight(t profile.Tier) int {
	switch t {
	case profile.TierEnterprise:
		return 4
	case profile.TierAutoArb, profile.TierAutoTech:
		return 3
	case profile.TierPremiumArb, profile.TierPremiumTech, profile.TierHybrid:
		return 2
	default:
		return 1
	}
}
