package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryWriter is an in-process Writer used by tests; it never sweeps rows
// it didn't record.
type memoryWriter struct {
	mu            sync.Mutex
	detections    []DetectionRecord
	distributions []DistributionRecord
	executions    []ExecutionRecord
	denials       []RateLimitDenialRecord
}

// NewMemoryWriter constructs an in-process Writer for tests.
func NewMemoryWriter() Writer {
	return &memoryWriter{}
}

func (w *memoryWriter) RecordDetection(ctx context.Context, r DetectionRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.detections = append(w.detections, r)
	return nil
}

func (w *memoryWriter) RecordDistribution(ctx context.Context, r DistributionRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.distributions = append(w.distributions, r)
	return nil
}

func (w *memoryWriter) RecordExecution(ctx context.Context, r ExecutionRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.executions = append(w.executions, r)
	return nil
}

func (w *memoryWriter) RecordRateLimitDenial(ctx context.Context, r RateLimitDenialRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.denials = append(w.denials, r)
	return nil
}

func (w *memoryWriter) RecentExecutions(ctx context.Context, userID string, since time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range w.executions {
		if e.UserID == userID && !e.At.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (w *memoryWriter) Sweep(ctx context.Context, windows RetentionWindows, now time.Time) (SweepResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var result SweepResult

	if windows.Detections > 0 {
		kept := w.detections[:0]
		cutoff := now.Add(-windows.Detections)
		for _, d := range w.detections {
			if d.DetectedAt.Before(cutoff) {
				result.DetectionsDeleted++
				continue
			}
			kept = append(kept, d)
		}
		w.detections = kept
	}

	if windows.Distributions > 0 {
		kept := w.distributions[:0]
		cutoff := now.Add(-windows.Distributions)
		for _, d := range w.distributions {
			if d.At.Before(cutoff) {
				result.DistributionsDeleted++
				continue
			}
			kept = append(kept, d)
		}
		w.distributions = kept
	}

	return result, nil
}
