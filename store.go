package colosseum

import "context"

// Store defines the contract for session state and persistence. Two
// implementations exist: postgres (durable) and memory (used when no
// database is configured — the debate still runs, records just don't
// survive restarts).
//
// Implementations must serialize writes per session so that the scheduler's
// sequential-per-session discipline is the only ordering guarantee needed.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error

	// Sessions
	CreateSession(ctx context.Context, session *Session) error
	ActiveSession(ctx context.Context, chatID, threadID int64) (*Session, error)
	SessionsForChat(ctx context.Context, chatID int64) ([]Session, error)
	ActiveSessions(ctx context.Context) ([]Session, error)
	AdvanceRound(ctx context.Context, sessionID string) (int, error)
	EndSession(ctx context.Context, sessionID, reason string) error

	// Messages
	AddMessage(ctx context.Context, sessionID, speaker, role, content string, usage *Usage) (*Message, error)
	SetDeliveryID(ctx context.Context, messageID, deliveryID string) error
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// Topics
	AddTopic(ctx context.Context, topic *Topic) error
	ListTopics(ctx context.Context) ([]Topic, error)

	// Usage events
	AddUsage(ctx context.Context, event *UsageEvent) error
	UsageTotals(ctx context.Context, sessionID string) (UsageTotals, error)
}
