package distribution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/profile"
)

type fakeProfileSource struct {
	profiles []*profile.UserProfile
	err      error
}

func (f *fakeProfileSource) ListActive(ctx context.Context) ([]*profile.UserProfile, error) {
	return f.profiles, f.err
}

type fakeSessionSource struct {
	active map[string]bool
}

func (f *fakeSessionSource) ActiveForUser(ctx context.Context, userID string) bool {
	return f.active[userID]
}

type fakeExecutionSource struct {
	recent map[string]bool
	err    error
}

func (f *fakeExecutionSource) RecentExecutions(ctx context.Context, userID string, since time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.recent[userID], nil
}

func TestBuildCandidates_MapsActiveProfiles(t *testing.T) {
	profiles := &fakeProfileSource{profiles: []*profile.UserProfile{
		{
			UserID:         "u1",
			ExternalChatID: "chat-1",
			Tier:           profile.TierFree,
			Role:           profile.RoleUser,
			Preferences:    profile.DefaultPreferences(),
		},
		{
			UserID:         "u2",
			ExternalChatID: "chat-2",
			Tier:           profile.TierEnterprise,
			Role:           profile.RoleAdmin,
			Preferences:    profile.DefaultPreferences(),
			BetaExpiresAt:  time.Now().Add(time.Hour).UnixMilli(),
		},
	}}
	sessions := &fakeSessionSource{active: map[string]bool{"u1": true}}
	executions := &fakeExecutionSource{recent: map[string]bool{"u2": true}}

	candidates, roles, err := BuildCandidates(context.Background(), profiles, sessions, executions, access.FeatureFlags{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byUser := map[string]Candidate{}
	for _, c := range candidates {
		byUser[c.UserID] = c
	}

	assert.True(t, byUser["u1"].SessionActive)
	assert.False(t, byUser["u2"].SessionActive)
	assert.Equal(t, "chat-1", byUser["u1"].ContextID)
	assert.True(t, byUser["u2"].Permissions[access.BasicOpportunities])
	assert.True(t, byUser["u2"].Permissions[access.AIEnhancedOpportunities])
	assert.False(t, byUser["u1"].RecentlyExecuted)
	assert.True(t, byUser["u2"].RecentlyExecuted)

	assert.Equal(t, profile.RoleUser, roles["u1"])
	assert.Equal(t, profile.RoleAdmin, roles["u2"])
}

func TestBuildCandidates_NilExecutionSourceDisablesBoost(t *testing.T) {
	profiles := &fakeProfileSource{profiles: []*profile.UserProfile{
		{UserID: "u1", ExternalChatID: "chat-1", Tier: profile.TierFree, Role: profile.RoleUser, Preferences: profile.DefaultPreferences()},
	}}
	sessions := &fakeSessionSource{active: map[string]bool{}}

	candidates, _, err := BuildCandidates(context.Background(), profiles, sessions, nil, access.FeatureFlags{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].RecentlyExecuted)
}

func TestBuildCandidates_ExecutionLookupErrorDisablesBoostButSucceeds(t *testing.T) {
	profiles := &fakeProfileSource{profiles: []*profile.UserProfile{
		{UserID: "u1", ExternalChatID: "chat-1", Tier: profile.TierFree, Role: profile.RoleUser, Preferences: profile.DefaultPreferences()},
	}}
	sessions := &fakeSessionSource{active: map[string]bool{}}
	executions := &fakeExecutionSource{err: assert.AnError}

	candidates, _, err := BuildCandidates(context.Background(), profiles, sessions, executions, access.FeatureFlags{})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].RecentlyExecuted)
}

func TestBuildCandidates_PropagatesRepoError(t *testing.T) {
	profiles := &fakeProfileSource{err: assert.AnError}
	sessions := &fakeSessionSource{active: map[string]bool{}}
	executions := &fakeExecutionSource{}

	_, _, err := BuildCandidates(context.Background(), profiles, sessions, executions, access.FeatureFlags{})
	assert.Error(t, err)
}

func TestBuildCandidates_NoActiveProfilesReturnsEmpty(t *testing.T) {
	profiles := &fakeProfileSource{profiles: nil}
	sessions := &fakeSessionSource{active: map[string]bool{}}
	executions := &fakeExecutionSource{}

	candidates, roles, err := BuildCandidates(context.Background(), profiles, sessions, executions, access.FeatureFlags{})
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Empty(t, roles)
}
