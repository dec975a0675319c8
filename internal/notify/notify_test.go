package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/fundarb/internal/apperr"
)

type recordingTransport struct {
	calls   int
	failN   int
	lastErr error
}

func (t *recordingTransport) Deliver(ctx context.Context, userID string, channel Channel, payload Payload) error {
	t.calls++
	if t.calls <= t.failN {
		return apperr.Transient("simulated transient failure", nil)
	}
	return nil
}

func TestRouter_RejectsTradeOpportunityOnGroupChannel(t *testing.T) {
	r := NewRouter(map[Channel]Transport{ChannelGroup: &recordingTransport{}})
	err := r.Send(context.Background(), "u1", ChannelGroup, KindTradeOpportunity, Payload{Text: "x"})
	assert.Error(t, err)
}

func TestRouter_AllowsPublicSummaryOnGroupChannel(t *testing.T) {
	transport := &recordingTransport{}
	r := NewRouter(map[Channel]Transport{ChannelGroup: transport})
	err := r.Send(context.Background(), "u1", ChannelGroup, KindPublicSummary, Payload{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestRouter_RetriesTransientFailures(t *testing.T) {
	transport := &recordingTransport{failN: 2}
	r := NewRouter(map[Channel]Transport{ChannelPrivate: transport})
	err := r.Send(context.Background(), "u1", ChannelPrivate, KindTradeOpportunity, Payload{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, 3, transport.calls)
}

func TestDemoteForGroup_StripsDetail(t *testing.T) {
	demoted := DemoteForGroup(Payload{Text: "BTC long binance short okx", Detail: map[string]any{"pair": "BTC"}})
	assert.Nil(t, demoted.Detail)
	assert.NotContains(t, demoted.Text, "binance")
}
