package httpapi

import (
	"context"

	"github.com/arbengine/fundarb/internal/access"
	"github.com/arbengine/fundarb/internal/profile"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	principalKey contextKey = "principal"
)

// principal is the authenticated identity attached to a request's context
// by authenticateMiddleware.
type principal struct {
	UserID string
	Role   profile.Role
	Perms  access.Set
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey).(principal)
	return p, ok
}
