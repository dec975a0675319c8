// Package scheduler drives the two recurring ticks the process runs on its
// own cadence: detection (fetch, pair, distribute) and maintenance
// (retention sweep). A tick that is still running when its next fire time
// arrives is skipped rather than allowed to overlap.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/arbengine/fundarb/internal/log"
)

var logger = log.Component("scheduler")

// TickResult is reported after every detection or maintenance tick,
// success or failure, for the caller to log or forward to the ledger.
type TickResult struct {
	Name      string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Scheduler runs onDetectionTick every DetectionInterval and
// onMaintenanceTick every MaintenanceInterval, each guarded against
// overlapping with its own previous run.
type Scheduler struct {
	detectionInterval  time.Duration
	maintenanceInterval time.Duration
	onDetectionTick    func(ctx context.Context) error
	onMaintenanceTick  func(ctx context.Context) error
	onResult           func(TickResult)

	detectionRunning   int32
	maintenanceRunning int32
}

// Config carries the two cadences and callbacks the scheduler drives.
type Config struct {
	DetectionInterval   time.Duration
	MaintenanceInterval time.Duration
	OnDetectionTick     func(ctx context.Context) error
	OnMaintenanceTick   func(ctx context.Context) error
	OnResult            func(TickResult)
}

func New(cfg Config) *Scheduler {
	onResult := cfg.OnResult
	if onResult == nil {
		onResult = func(TickResult) {}
	}
	return &Scheduler{
		detectionInterval:   cfg.DetectionInterval,
		maintenanceInterval: cfg.MaintenanceInterval,
		onDetectionTick:     cfg.OnDetectionTick,
		onMaintenanceTick:   cfg.OnMaintenanceTick,
		onResult:            onResult,
	}
}

// Run blocks until ctx is cancelled, firing both ticks on independent
// tickers. A tick failure is logged and reported via onResult but never
// stops the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	detectionTicker := time.NewTicker(s.detectionInterval)
	defer detectionTicker.Stop()

	maintenanceTicker := time.NewTicker(s.maintenanceInterval)
	defer maintenanceTicker.Stop()

	logger.Info().Dur("detection_interval", s.detectionInterval).Dur("maintenance_interval", s.maintenanceInterval).Msg("scheduler starting")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler stopping")
			return ctx.Err()
		case <-detectionTicker.C:
			s.fire("detection", &s.detectionRunning, s.onDetectionTick, ctx)
		case <-maintenanceTicker.C:
			s.fire("maintenance", &s.maintenanceRunning, s.onMaintenanceTick, ctx)
		}
	}
}

func (s *Scheduler) fire(name string, running *int32, tick func(ctx context.Context) error, ctx context.Context) {
	if tick == nil {
		return
	}
	if !atomic.CompareAndSwapInt32(running, 0, 1) {
		logger.Warn().Str("tick", name).Msg("skipping tick, previous run still in flight")
		return
	}

	go func() {
		defer atomic.StoreInt32(running, 0)

		start := time.Now()
		err := tick(ctx)
		result := TickResult{Name: name, StartedAt: start, Duration: time.Since(start), Err: err}

		if err != nil {
			logger.Error().Str("tick", name).Err(err).Dur("duration", result.Duration).Msg("tick failed")
		} else {
			logger.Debug().Str("tick", name).Dur("duration", result.Duration).Msg("tick completed")
		}
		s.onResult(result)
	}()
}
