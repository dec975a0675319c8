package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/arbengine/fundarb/internal/config"
)

// RouteTable resolves a (method, path) pair to a configured per-minute
// limit and enforces it with the sliding-window strategy, keyed first by
// authenticated userID (if present) and falling back to clientIP.
type RouteTable struct {
	limiter *Limiter
	routes  []config.RouteLimit
}

func NewRouteTable(limiter *Limiter, routes []config.RouteLimit) *RouteTable {
	return &RouteTable{limiter: limiter, routes: routes}
}

// Check enforces the limit configured for the given route, scoped to
// userID when present, else clientIP.
func (rt *RouteTable) Check(ctx context.Context, method, path, userID, clientIP string) Decision {
	limit, matched := rt.resolve(method, path)
	if !matched {
		return Decision{Allowed: true}
	}

	scope := clientIP
	if userID != "" {
		scope = userID
	}
	scopeKey := method + ":" + path + ":" + scope

	return rt.limiter.AllowSlidingWindow(ctx, scopeKey, limit, time.Minute)
}

func (rt *RouteTable) resolve(method, path string) (int, bool) {
	for _, r := range rt.routes {
		if r.Method != "" && !strings.EqualFold(r.Method, method) {
			continue
		}
		if routeMatches(r.Pattern, path) {
			return r.LimitPerMinute, true
		}
	}
	return 0, false
}

// routeMatches supports a trailing "/*" wildcard, the only wildcard form
// the route table needs.
func routeMatches(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == path
}
