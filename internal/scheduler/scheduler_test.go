package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_FiresDetectionAndMaintenanceTicks(t *testing.T) {
	var detections, maintenance int32

	s := New(Config{
		DetectionInterval:   20 * time.Millisecond,
		MaintenanceInterval: 25 * time.Millisecond,
		OnDetectionTick: func(ctx context.Context) error {
			atomic.AddInt32(&detections, 1)
			return nil
		},
		OnMaintenanceTick: func(ctx context.Context) error {
			atomic.AddInt32(&maintenance, 1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&detections), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&maintenance), int32(2))
}

func TestScheduler_SkipsOverlappingDetectionTick(t *testing.T) {
	var started, completed int32
	release := make(chan struct{})

	s := New(Config{
		DetectionInterval:   10 * time.Millisecond,
		MaintenanceInterval: time.Hour,
		OnDetectionTick: func(ctx context.Context) error {
			atomic.AddInt32(&started, 1)
			<-release
			atomic.AddInt32(&completed, 1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 47*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(45 * time.Millisecond)
		close(release)
	}()

	_ = s.Run(ctx)
	time.Sleep(10 * time.Millisecond) // allow the in-flight goroutine to finish after ctx ends

	// Exactly one tick should have started while release was held closed,
	// because subsequent ticks observed detectionRunning != 0 and skipped.
	assert.Equal(t, int32(1), atomic.LoadInt32(&started))
	assert.Equal(t, int32(1), atomic.LoadInt32(&completed))
}

func TestScheduler_TickFailureDoesNotStopSchedule(t *testing.T) {
	var calls int32
	var results []TickResult

	s := New(Config{
		DetectionInterval:   15 * time.Millisecond,
		MaintenanceInterval: time.Hour,
		OnDetectionTick: func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return assertErr
		},
		OnResult: func(r TickResult) {
			results = append(results, r)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

var assertErr = &tickError{"simulated tick failure"}

type tickError struct{ msg string }

func (e *tickError) Error() string { return e.msg }
