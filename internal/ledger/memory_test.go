package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryWriter_RecordsAllEventKinds(t *testing.T) {
	w := NewMemoryWriter()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, w.RecordDetection(ctx, DetectionRecord{OpportunityID: "opp-1", Pair: "BTC-USD", DetectedAt: now}))
	require.NoError(t, w.RecordDistribution(ctx, DistributionRecord{OpportunityID: "opp-1", UserID: "u1", Reason: "Eligible", Delivered: true, At: now}))
	require.NoError(t, w.RecordExecution(ctx, ExecutionRecord{OpportunityID: "opp-1", UserID: "u1", Outcome: "Filled", At: now}))
	require.NoError(t, w.RecordRateLimitDenial(ctx, RateLimitDenialRecord{Scope: "user:u1", Route: "/opportunities", Strategy: "token_bucket", At: now}))

	mw := w.(*memoryWriter)
	assert.Len(t, mw.detections, 1)
	assert.Len(t, mw.distributions, 1)
	assert.Len(t, mw.executions, 1)
	assert.Len(t, mw.denials, 1)
}

func TestMemoryWriter_SweepPrunesOnlyExpiredRows(t *testing.T) {
	w := NewMemoryWriter()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, w.RecordDetection(ctx, DetectionRecord{OpportunityID: "old", DetectedAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, w.RecordDetection(ctx, DetectionRecord{OpportunityID: "new", DetectedAt: now}))
	require.NoError(t, w.RecordDistribution(ctx, DistributionRecord{OpportunityID: "old", At: now.Add(-100 * 24 * time.Hour)}))
	require.NoError(t, w.RecordDistribution(ctx, DistributionRecord{OpportunityID: "new", At: now}))

	result, err := w.Sweep(ctx, DefaultRetentionWindows(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DetectionsDeleted)
	assert.Equal(t, int64(1), result.DistributionsDeleted)

	mw := w.(*memoryWriter)
	require.Len(t, mw.detections, 1)
	assert.Equal(t, "new", mw.detections[0].OpportunityID)
	require.Len(t, mw.distributions, 1)
	assert.Equal(t, "new", mw.distributions[0].OpportunityID)
}

func TestMemoryWriter_RecentExecutions(t *testing.T) {
	w := NewMemoryWriter()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, w.RecordExecution(ctx, ExecutionRecord{OpportunityID: "opp-1", UserID: "u1", At: now.Add(-time.Hour)}))

	recent, err := w.RecentExecutions(ctx, "u1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, recent)

	recent, err = w.RecentExecutions(ctx, "u1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, recent)

	recent, err = w.RecentExecutions(ctx, "u2", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestMemoryWriter_ExecutionsAreNeverSwept(t *testing.T) {
	w := NewMemoryWriter()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, w.RecordExecution(ctx, ExecutionRecord{OpportunityID: "ancient", At: now.Add(-1000 * 24 * time.Hour)}))

	_, err := w.Sweep(ctx, DefaultRetentionWindows(), now)
	require.NoError(t, err)

	mw := w.(*memoryWriter)
	assert.Len(t, mw.executions, 1)
}
