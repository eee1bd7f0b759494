package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/colosseum"
)

// AddMessage appends a message to a session with auto-incremented seq.
func (s *PGStore) AddMessage(ctx context.Context, sessionID, speaker, role, content string, usage *colosseum.Usage) (*colosseum.Message, error) {
	msg := &colosseum.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Speaker:   speaker,
		Role:      role,
		Content:   content,
		Usage:     usage,
	}

	var promptTokens, completionTokens, totalTokens int
	if usage != nil {
		promptTokens = usage.PromptTokens
		completionTokens = usage.CompletionTokens
		totalTokens = usage.TotalTokens
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO debate_messages (id, session_id, seq, speaker, role, content, delivery_id, prompt_tokens, completion_tokens, total_tokens)
		 VALUES ($1, $2, COALESCE((SELECT MAX(seq) FROM debate_messages WHERE session_id = $2), 0) + 1, $3, $4, $5, '', $6, $7, $8)
		 RETURNING seq, created_at`,
		msg.ID, sessionID, speaker, role, content, promptTokens, completionTokens, totalTokens,
	).Scan(&msg.Seq, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("colosseum: add message: %w", err)
	}

	return msg, nil
}

// SetDeliveryID stores the platform-assigned message id once delivery
// succeeds. Best effort; a missing delivery id only means the post was not
// acknowledged.
func (s *PGStore) SetDeliveryID(ctx context.Context, messageID, deliveryID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE debate_messages SET delivery_id = $2 WHERE id = $1`,
		messageID, deliveryID,
	)
	if err != nil {
		return fmt.Errorf("colosseum: set delivery id: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages of a session in
// chronological order. limit <= 0 returns everything.
func (s *PGStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]colosseum.Message, error) {
	query := `SELECT id, session_id, seq, speaker, role, content, delivery_id, prompt_tokens, completion_tokens, total_tokens, created_at
		 FROM (
			SELECT * FROM debate_messages WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
		 ) recent
		 ORDER BY seq ASC`

	n := limit
	if n <= 0 {
		n = 1 << 30
	}

	rows, err := s.db.Query(ctx, query, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("colosseum: list messages: %w", err)
	}
	defer rows.Close()

	var messages []colosseum.Message
	for rows.Next() {
		var msg colosseum.Message
		var pt, ct, tt int

		err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Seq, &msg.Speaker, &msg.Role,
			&msg.Content, &msg.DeliveryID, &pt, &ct, &tt, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("colosseum: scan message: %w", err)
		}

		if pt > 0 || ct > 0 || tt > 0 {
			msg.Usage = &colosseum.Usage{
				PromptTokens:     pt,
				CompletionTokens: ct,
				TotalTokens:      tt,
			}
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("colosseum: list messages: %w", err)
	}

	return messages, nil
}

// Ensure PGStore implements colosseum.Store at compile time.
var _ colosseum.Store = (*PGStore)(nil)
