package distribution

import (
	"context"
	"time"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/profile"
)

// ProfileSource is the subset of profile.Service a recipient build needs.
type ProfileSource interface {
	ListActive(ctx context.Context) ([]*profile.UserProfile, error)
}

// SessionSource is the subset of profile.SessionStore a recipient build
// needs to determine whether a candidate's session is currently active.
type SessionSource interface {
	ActiveForUser(ctx context.Context, userID string) bool
}

// recentActivityWindow bounds how far back a candidate's execution history
// is checked for the activity-boost tiebreak.
const recentActivityWindow = 7 * 24 * time.Hour

// ExecutionSource reports whether a user has a recorded trade execution
// within the activity-boost lookback window, queried against the analytics
// ledger (C9). A nil ExecutionSource leaves every candidate's
// RecentlyExecuted false, disabling the boost rather than failing the build.
type ExecutionSource interface {
	RecentExecutions(ctx context.Context, userID string, since time.Time) (bool, error)
}

// BuildCandidates converts every active profile into a distribution
// Candidate, resolving session activity, permission set, and recent-activity
// status per user, and returns the role lookup Engine.Distribute needs
// alongside it.
func BuildCandidates(ctx context.Context, profiles ProfileSource, sessions SessionSource, executions ExecutionSource, flags access.FeatureFlags) ([]Candidate, map[string]profile.Role, error) {
	active, err := profiles.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	candidates := make([]Candidate, 0, len(active))
	roles := make(map[string]profile.Role, len(active))
	now := time.Now()

	for _, p := range active {
		perms := access.Resolve(p.Tier, p.Role, p.BetaActive(now), flags)
		candidates = append(candidates, Candidate{
			UserID:           p.UserID,
			Tier:             p.Tier,
			Permissions:      perms,
			SessionActive:    sessions.ActiveForUser(ctx, p.UserID),
			Preferences:      p.Preferences,
			RecentlyExecuted: recentlyExecuted(ctx, executions, p.UserID, now),
			ContextID:        p.ExternalChatID,
		})
		roles[p.UserID] = p.Role
	}

	return candidates, roles, nil
}

func recentlyExecuted(ctx context.Context, executions ExecutionSource, userID string, now time.Time) bool {
	if executions == nil {
		return false
	}
	recent, err := executions.RecentExecutions(ctx, userID, now.Add(-recentActivityWindow))
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("recent execution lookup failed, skipping activity boost")
		return false
	}
	return recent
}
