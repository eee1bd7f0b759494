package debate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/meikuraledutech/colosseum"
)

// LogCourier delivers messages to the log. It stands in for the chat
// platform when no bot tokens are configured, so the orchestrator runs
// end to end without external transport.
type LogCourier struct {
	log *slog.Logger
}

// NewLogCourier creates a LogCourier.
func NewLogCourier(log *slog.Logger) *LogCourier {
	return &LogCourier{log: log}
}

// Deliver logs the message and fabricates a delivery id.
func (c *LogCourier) Deliver(ctx context.Context, chatID, threadID int64, speaker, text string) (string, error) {
	c.log.Info("message delivered",
		"chat_id", chatID,
		"thread_id", threadID,
		"speaker", speaker,
		"text", text)
	return uuid.New().String(), nil
}

// Ensure LogCourier implements colosseum.Courier at compile time.
var _ colosseum.Courier = (*LogCourier)(nil)
