package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbengine/fundarb/internal/apperr"
)

func TestTelegramTransport_DeliverSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg telegramMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "chat-1", msg.ChatID)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(telegramResponse{OK: true})
	}))
	defer server.Close()

	transport := NewTelegramTransport(TelegramConfig{BotToken: "123:abc"})
	transport.apiURL = server.URL

	err := transport.Deliver(context.Background(), "chat-1", ChannelPrivate, Payload{Text: "BTC.USDT long"})
	require.NoError(t, err)
}

func TestTelegramTransport_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(telegramResponse{OK: false, Description: "rate limited"})
	}))
	defer server.Close()

	transport := NewTelegramTransport(TelegramConfig{BotToken: "123:abc"})
	transport.apiURL = server.URL

	err := transport.Deliver(context.Background(), "chat-1", ChannelPrivate, Payload{Text: "x"})
	require.Error(t, err)
	assert.True(t, apperr.KindOf(err).Retryable())
}

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, "BTC\\.USDT \\- long", escapeMarkdownV2("BTC.USDT - long"))
}
