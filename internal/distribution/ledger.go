package distribution

import (
	"context"
	"errors"
	"time"

	"github.com/arbengine/fundarb/internal/profile"
	"github.com/arbengine/fundarb/internal/store/kv"
)

const maxLedgerCASRetries = 5

// effectiveLimit applies the tier multiplier, the group multiplier when the
// context is a group, and the activity-boost factor for a recently-active
// user, to the configured per-day base limit.
func effectiveLimit(base int, tier profile.Tier, isGroup, recentlyExecuted bool, f Fairness) int {
	mult := f.TierMultipliers[string(tier)]
	if mult <= 0 {
		mult = 1.0
	}
	limit := float64(base) * mult
	if isGroup {
		groupMult := f.GroupMultiplier
		if groupMult <= 0 {
			groupMult = 1.0
		}
		limit *= groupMult
	}
	if recentlyExecuted {
		boost := f.ActivityBoost
		if boost <= 0 {
			boost = 1.0
		}
		limit *= boost
	}
	return int(limit)
}

// TryRecordDelivery attempts to atomically admit one delivery of kind to
// (userID, contextID) for the UTC date of now, enforcing the daily cap and
// burst/cooldown rule. recentlyExecuted widens the day's cap by the
// fairness activity-boost factor, re-admitting a recently-active user ahead
// of an otherwise-equal peer. It returns ReasonEligible and a persisted
// increment on success, or the reason the delivery was rejected.
func TryRecordDelivery(ctx context.Context, store kv.Store, userID, contextID string, isGroup bool, kind Kind, tier profile.Tier, recentlyExecuted bool, fairness Fairness, now time.Time) (EligibilityReason, error) {
	date := now.UTC().Format("2006-01-02")
	key := kv.LedgerKey(userID, date, contextID)
	cooldown := time.Duration(fairness.CooldownSeconds) * time.Second

	for attempt := 0; attempt < maxLedgerCASRetries; attempt++ {
		var current Ledger
		found, err := store.Get(ctx, key, &current)
		if err != nil {
			return "", err
		}
		if !found {
			current = Ledger{
				UserID:         userID,
				Date:           date,
				ContextID:      contextID,
				IsGroupContext: isGroup,
				ArbLimit:       effectiveLimit(fairness.PerDay, tier, isGroup, recentlyExecuted, fairness),
				TechLimit:      effectiveLimit(fairness.PerDay, tier, isGroup, recentlyExecuted, fairness),
			}
		}

		if current.received(kind) >= current.limit(kind) {
			return ReasonDailyCapExceeded, nil
		}

		next := current
		if next.BurstStartedAt.IsZero() || now.Sub(next.BurstStartedAt) >= cooldown {
			next.BurstStartedAt = now
			next.BurstCount = 0
		} else if next.BurstCount >= fairness.PerBurst {
			return ReasonCooldownActive, nil
		}

		next.BurstCount++
		next.LastDeliveryAt = now
		if isGroup {
			next.GroupMultiplierApplied = true
		}
		switch kind {
		case KindTechnical:
			next.ReceivedTech++
		default:
			next.ReceivedArb++
		}

		var casErr error
		if found {
			casErr = store.CompareAndSwap(ctx, key, current, next, kv.PutOptions{TTL: 48 * time.Hour})
		} else {
			casErr = store.CompareAndSwap(ctx, key, nil, next, kv.PutOptions{TTL: 48 * time.Hour})
		}
		if casErr == nil {
			return ReasonEligible, nil
		}
		if errors.Is(casErr, kv.ErrNotFound) {
			continue // lost the race against a concurrent delivery, retry with fresh state
		}
		return "", casErr
	}

	return ReasonLedgerConflict, nil
}
