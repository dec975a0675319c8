// Package telemetry exposes the Prometheus counters and histograms served
// from /metrics. The detector and venue fetch metrics are updated by the
// detection cycle; DistributionAttemptsTotal and RateLimiterDenialsTotal
// are registered but no component increments them.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DetectionCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "detector",
		Name:      "cycles_total",
		Help:      "Completed detection cycles, labeled by outcome.",
	}, []string{"outcome"})

	DetectionCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fundarb",
		Subsystem: "detector",
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of a full detection cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	OpportunitiesEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "detector",
		Name:      "opportunities_emitted_total",
		Help:      "Opportunities emitted, labeled by pair.",
	}, []string{"pair"})

	VenueFetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "venue",
		Name:      "fetch_errors_total",
		Help:      "Venue fetch failures, labeled by venue and error code.",
	}, []string{"venue", "code"})

	DistributionAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "distribution",
		Name:      "attempts_total",
		Help:      "Per-user distribution attempts, labeled by outcome.",
	}, []string{"outcome"})

	RateLimiterDenialsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundarb",
		Subsystem: "ratelimit",
		Name:      "denials_total",
		Help:      "Rate limiter denials, labeled by strategy.",
	}, []string{"strategy"})
)

// Registry builds a prometheus.Registry with every metric this module
// reports pre-registered, ready to serve from /metrics.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		DetectionCyclesTotal,
		DetectionCycleDuration,
		OpportunitiesEmittedTotal,
		VenueFetchErrorsTotal,
		DistributionAttemptsTotal,
		RateLimiterDenialsTotal,
	)
	return reg
}
