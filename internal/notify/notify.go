// Package notify delivers rendered payloads to a user's private or group
// channel, enforcing which payload kinds may reach which channel types and
// retrying transient delivery failures with backoff.
package notify

import (
	"context"
	"time"

	"github.com/arbengine/fundarb/internal/apperr"
	"github.com/arbengine/fundarb/internal/log"
)

// Channel is the closed set of delivery surfaces.
type Channel string

const (
	ChannelPrivate Channel = "private"
	ChannelGroup   Channel = "group"
	ChannelEmail   Channel = "email"
)

// Kind is the closed set of payload categories the router can deliver.
type Kind string

const (
	KindTradeOpportunity Kind = "TradeOpportunity"
	KindAnalytics        Kind = "Analytics"
	KindMarketing        Kind = "Marketing"
	KindHelp             Kind = "Help"
	KindSettings         Kind = "Settings"
	KindPublicSummary    Kind = "PublicSummary"
)

// privateOnlyKinds must never be rendered to a group channel.
var privateOnlyKinds = map[Kind]bool{
	KindTradeOpportunity: true,
	KindAnalytics:        true,
	KindMarketing:        true,
}

var logger = log.Component("notify")

// Payload is the rendered content handed to a Transport, already adapted
// for the target channel (e.g. already demoted to a public-safe summary).
type Payload struct {
	Text    string
	Detail  map[string]any
}

// Transport performs the actual delivery for one channel kind (chat
// egress, email, etc). A Transport failure that is transient should be
// returned as apperr.Transient/apperr.TimedOut so Router knows to retry.
type Transport interface {
	Deliver(ctx context.Context, userID string, channel Channel, payload Payload) error
}

// Router validates channel/kind compatibility, then delivers through the
// channel-appropriate Transport with retry-with-backoff on transient
// failures.
type Router struct {
	transports map[Channel]Transport
	maxRetries int
	baseDelay  time.Duration
}

func NewRouter(transports map[Channel]Transport) *Router {
	return &Router{transports: transports, maxRetries: 3, baseDelay: 200 * time.Millisecond}
}

// Send validates kind against channel, then delivers with retries. It
// returns the terminal error, if any, after retries are exhausted.
func (r *Router) Send(ctx context.Context, userID string, channel Channel, kind Kind, payload Payload) error {
	if channel == ChannelGroup && privateOnlyKinds[kind] {
		return apperr.Forbidden("trade-sensitive payload kinds cannot be sent to a group channel", nil)
	}

	transport, ok := r.transports[channel]
	if !ok {
		return apperr.Validate("no transport configured for channel "+string(channel), nil)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := transport.Deliver(ctx, userID, channel, payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperr.KindOf(err).Retryable() {
			return err
		}
		logger.Warn().Str("user_id", userID).Str("channel", string(channel)).Int("attempt", attempt+1).Err(err).Msg("delivery attempt failed, retrying")
	}

	return lastErr
}

// DemoteForGroup renders a public-safe summary for a group context,
// stripping any trade-specific detail; used before Send when the caller
// must reach a group channel with a trade-sensitive kind.
func DemoteForGroup(original Payload) Payload {
	return Payload{Text: "Opportunity available; check your private chat for details."}
}
