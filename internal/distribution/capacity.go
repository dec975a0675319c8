package distribution

import (
	"context"
	"errors"
	"time"

	"github.com/arbengine/fundarb/internal/store/kv"
)

const maxCapacityCASRetries = 5

// TryReserveRecipientSlot atomically increments an opportunity's recipient
// counter if doing so would not exceed maxRecipients, returning whether a
// slot was reserved.
func TryReserveRecipientSlot(ctx context.Context, store kv.Store, opportunityID string, maxRecipients int) (bool, error) {
	key := kv.ActiveOpportunityKey(opportunityID)

	for attempt := 0; attempt < maxCapacityCASRetries; attempt++ {
		var current int
		found, err := store.Get(ctx, key, &current)
		if err != nil {
			return false, err
		}
		if !found {
			current = 0
		}
		if current >= maxRecipients {
			return false, nil
		}

		var casErr error
		if found {
			casErr = store.CompareAndSwap(ctx, key, current, current+1, kv.PutOptions{TTL: 24 * time.Hour})
		} else {
			casErr = store.CompareAndSwap(ctx, key, nil, current+1, kv.PutOptions{TTL: 24 * time.Hour})
		}
		if casErr == nil {
			return true, nil
		}
		if errors.Is(casErr, kv.ErrNotFound) {
			continue
		}
		return false, casErr
	}

	return false, nil
}

// TryClaimIdempotencyKey ensures an (opportunity, user) pair is delivered
// at most once, returning false if it was already claimed.
func TryClaimIdempotencyKey(ctx context.Context, store kv.Store, opportunityID, userID string) (bool, error) {
	key := kv.DeliveredKey(opportunityID, userID)
	err := store.CompareAndSwap(ctx, key, nil, true, kv.PutOptions{TTL: 30 * 24 * time.Hour})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	return false, err
}
