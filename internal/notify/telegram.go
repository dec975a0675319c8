package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arbengine/fundarb/internal/apperr"
)

// TelegramConfig holds the bot credentials used to deliver to a user's
// private chat or a group chat.
type TelegramConfig struct {
	BotToken string
	Timeout  time.Duration
}

// TelegramTransport delivers Payloads through the Telegram Bot API. userID
// is expected to be the destination chat ID; callers resolve a profile's
// external chat ID before invoking Send.
type TelegramTransport struct {
	config TelegramConfig
	client *http.Client
	apiURL string
}

func NewTelegramTransport(config TelegramConfig) *TelegramTransport {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &TelegramTransport{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		apiURL: fmt.Sprintf("https://api.telegram.org/bot%s", config.BotToken),
	}
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

func (t *TelegramTransport) Deliver(ctx context.Context, userID string, channel Channel, payload Payload) error {
	msg := telegramMessage{
		ChatID:                userID,
		Text:                  escapeMarkdownV2(payload.Text),
		ParseMode:             "MarkdownV2",
		DisableWebPagePreview: true,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return apperr.Internalf("marshal telegram payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return apperr.Internalf("build telegram request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return apperr.Transient("telegram request failed", err)
	}
	defer resp.Body.Close()

	var tr telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return apperr.Transient("decode telegram response", err)
	}

	if !tr.OK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return apperr.Transient("telegram error: "+tr.Description, nil)
		}
		return apperr.Exchange("telegram error: "+tr.Description, nil)
	}

	logger.Debug().Str("user_id", userID).Str("channel", string(channel)).Msg("telegram message delivered")
	return nil
}

var markdownV2Escaper = strings.NewReplacer(
	"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
	"(", "\\(", ")", "\\)", "~", "\\~", "`", "\\`",
	">", "\\>", "#", "\\#", "+", "\\+", "-", "\\-",
	"=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}",
	".", "\\.", "!", "\\!",
)

func escapeMarkdownV2(text string) string {
	return markdownV2Escaper.Replace(text)
}
