// Package telegram implements colosseum.Courier on the Telegram Bot API.
// Each persona posts through its own bot token, so the chat shows distinct
// participants.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/meikuraledutech/colosseum"
)

const defaultBaseURL = "https://api.telegram.org"

// Courier posts messages through per-speaker bot tokens.
type Courier struct {
	tokens  map[string]string
	baseURL string
	client  *http.Client
}

// New creates a Courier. tokens maps speaker keys (persona keys and the
// judge sentinel) to bot tokens.
func New(tokens map[string]string) *Courier {
	return &Courier{
		tokens:  tokens,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Courier) WithBaseURL(url string) *Courier {
	c.baseURL = url
	return c
}

type sendMessageRequest struct {
	ChatID              int64  `json:"chat_id"`
	Text                string `json:"text"`
	MessageThreadID     int64  `json:"message_thread_id,omitempty"`
	DisableNotification bool   `json:"disable_notification"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Deliver posts text to the chat (and thread, when set) as the speaker's
// bot. Returns the platform message id.
func (c *Courier) Deliver(ctx context.Context, chatID, threadID int64, speaker, text string) (string, error) {
	token, ok := c.tokens[speaker]
	if !ok {
		return "", fmt.Errorf("%w: no bot token for speaker %q", colosseum.ErrDeliveryFailed, speaker)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:              chatID,
		Text:                text,
		MessageThreadID:     threadID,
		DisableNotification: true,
	})
	if err != nil {
		return "", fmt.Errorf("colosseum: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("colosseum: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", colosseum.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", colosseum.ErrDeliveryFailed, err)
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", colosseum.ErrDeliveryFailed, err)
	}
	if !parsed.OK {
		return "", fmt.Errorf("%w: %s", colosseum.ErrDeliveryFailed, parsed.Description)
	}

	return strconv.FormatInt(parsed.Result.MessageID, 10), nil
}

// Ensure Courier implements colosseum.Courier at compile time.
var _ colosseum.Courier = (*Courier)(nil)
