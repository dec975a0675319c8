package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/arbengine/fundarb/internal/store/kv"
)

type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Uptime    string                       `json:"uptime"`
	Version   string                       `json:"version"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

const healthProbeKey = "health:probe"

// handleHealthz reports liveness/readiness: the KV store and the durable
// Postgres store (when configured) must both answer within a short
// deadline, otherwise the process is reported unhealthy.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r, 2*time.Second)
	defer cancel()

	checks := map[string]healthCheckResult{}
	healthy := true

	if s.deps.Store != nil {
		if err := probeKV(ctx, s.deps.Store); err != nil {
			checks["kv"] = healthCheckResult{Status: "fail", Message: err.Error()}
			healthy = false
		} else {
			checks["kv"] = healthCheckResult{Status: "pass"}
		}
	}

	if s.deps.PingPostgres != nil {
		if err := s.deps.PingPostgres(ctx); err != nil {
			checks["postgres"] = healthCheckResult{Status: "fail", Message: err.Error()}
			healthy = false
		} else {
			checks["postgres"] = healthCheckResult{Status: "pass"}
		}
	}

	resp := healthResponse{
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startedAt).String(),
		Version:   s.deps.Version,
		Checks:    checks,
	}

	if !healthy {
		resp.Status = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Status = "healthy"
	writeJSON(w, http.StatusOK, resp)
}

func probeKV(ctx context.Context, store kv.Store) error {
	return store.Put(ctx, healthProbeKey, time.Now().Unix(), kv.PutOptions{TTL: time.Minute})
}

func timeoutCtx(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
