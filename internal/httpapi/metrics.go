package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbengine/fundarb/internal/telemetry"
)

// metricsHandler serves the module's Prometheus registry.
func metricsHandler() http.Handler {
	return promhttp.HandlerFor(telemetry.Registry(), promhttp.HandlerOpts{})
}
