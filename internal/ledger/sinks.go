package ledger

import (
	"context"

	"github.com/arbengine/fundarb/internal/distribution"
)

// DistributionSink adapts a Writer to distribution.AuditSink so the
// distribution engine can record every eligibility outcome without
// depending on this package directly.
type DistributionSink struct {
	Writer Writer
}

func (s DistributionSink) RecordDistributionAttempt(ctx context.Context, outcome distribution.DeliveryOutcome) {
	err := s.Writer.RecordDistribution(ctx, DistributionRecord{
		OpportunityID: outcome.OpportunityID,
		UserID:        outcome.UserID,
		Reason:        string(outcome.Reason),
		Delivered:     outcome.Delivered,
		At:            outcome.At,
	})
	if err != nil {
		logger.Warn().Err(err).Str("opportunity_id", outcome.OpportunityID).Msg("failed to record distribution outcome")
	}
}
