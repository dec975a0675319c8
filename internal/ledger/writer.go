package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arbengine/fundarb/internal/log"
)

var logger = log.Component("ledger")

// Writer is the append-only interface for analytics records. Within this
// module only detections (the detection tick in cmd/fundarb) and
// distribution decisions (via DistributionSink in sinks.go) are recorded;
// nothing calls RecordExecution or RecordRateLimitDenial.
type Writer interface {
	RecordDetection(ctx context.Context, r DetectionRecord) error
	RecordDistribution(ctx context.Context, r DistributionRecord) error
	RecordExecution(ctx context.Context, r ExecutionRecord) error
	RecordRateLimitDenial(ctx context.Context, r RateLimitDenialRecord) error
	Sweep(ctx context.Context, windows RetentionWindows, now time.Time) (SweepResult, error)

	// RecentExecutions reports whether userID has a recorded execution at
	// or after since, backing the distribution engine's activity-boost
	// tiebreak.
	RecentExecutions(ctx context.Context, userID string, since time.Time) (bool, error)
}

// SweepResult reports how many rows the retention sweep removed from each
// table, for the maintenance tick's log line.
type SweepResult struct {
	DetectionsDeleted    int64
	DistributionsDeleted int64
}

type postgresWriter struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresWriter constructs the production Writer backed by the
// audit_log and distribution_records tables.
func NewPostgresWriter(db *sqlx.DB, timeout time.Duration) Writer {
	return &postgresWriter{db: db, timeout: timeout}
}

func (w *postgresWriter) RecordDetection(ctx context.Context, r DetectionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, resource_type, resource_id, new_value_json, unix_ms)
		VALUES ($1, 'detection', 'opportunity', $2, $3, $4)`,
		r.ID, r.OpportunityID, detectionJSON(r), r.DetectedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record detection: %w", err)
	}
	return nil
}

func (w *postgresWriter) RecordDistribution(ctx context.Context, r DistributionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO distribution_records (id, opportunity_id, user_id, reason, delivered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.OpportunityID, r.UserID, r.Reason, r.Delivered, r.At)
	if err != nil {
		return fmt.Errorf("record distribution: %w", err)
	}
	return nil
}

func (w *postgresWriter) RecordExecution(ctx context.Context, r ExecutionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, action, resource_type, resource_id, new_value_json, unix_ms)
		VALUES ($1, $2, 'execution', 'opportunity', $3, $4, $5)`,
		r.ID, r.UserID, r.OpportunityID, executionJSON(r), r.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

func (w *postgresWriter) RecordRateLimitDenial(ctx context.Context, r RateLimitDenialRecord) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, action, resource_type, resource_id, new_value_json, unix_ms)
		VALUES ($1, 'rate_limit_denial', 'route', $2, $3, $4)`,
		r.ID, r.Route, rateLimitJSON(r), r.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("record rate limit denial: %w", err)
	}
	return nil
}

func (w *postgresWriter) RecentExecutions(ctx context.Context, userID string, since time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var exists bool
	err := w.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM audit_log
			WHERE action = 'execution' AND user_id = $1 AND unix_ms >= $2
		)`, userID, since.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("recent executions: %w", err)
	}
	return exists, nil
}

// Sweep deletes detection and distribution rows older than their
// retention window. Executions are never swept; windows.Executions is not
// read.
func (w *postgresWriter) Sweep(ctx context.Context, windows RetentionWindows, now time.Time) (SweepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var result SweepResult

	if windows.Detections > 0 {
		cutoff := now.Add(-windows.Detections).UnixMilli()
		res, err := w.db.ExecContext(ctx, `DELETE FROM audit_log WHERE action = 'detection' AND unix_ms < $1`, cutoff)
		if err != nil {
			return result, fmt.Errorf("sweep detections: %w", err)
		}
		result.DetectionsDeleted, _ = res.RowsAffected()
	}

	if windows.Distributions > 0 {
		cutoff := now.Add(-windows.Distributions)
		res, err := w.db.ExecContext(ctx, `DELETE FROM distribution_records WHERE created_at < $1`, cutoff)
		if err != nil {
			return result, fmt.Errorf("sweep distributions: %w", err)
		}
		result.DistributionsDeleted, _ = res.RowsAffected()
	}

	logger.Info().Int64("detections_deleted", result.DetectionsDeleted).Int64("distributions_deleted", result.DistributionsDeleted).Msg("retention sweep complete")
	return result, nil
}

func detectionJSON(r DetectionRecord) string {
	return fmt.Sprintf(`{"pair":%q,"long_venue":%q,"short_venue":%q,"net_rate_difference":%g,"priority_score":%g}`,
		r.Pair, r.LongVenue, r.ShortVenue, r.NetRateDifference, r.PriorityScore)
}

func executionJSON(r ExecutionRecord) string {
	return fmt.Sprintf(`{"outcome":%q,"pnl_bps":%g}`, r.Outcome, r.PnLBps)
}

func rateLimitJSON(r RateLimitDenialRecord) string {
	return fmt.Sprintf(`{"scope":%q,"strategy":%q}`, r.Scope, r.Strategy)
}
