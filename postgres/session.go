package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/colosseum"
)

// CreateSession creates a new active session for a (chat, thread) pair.
// Returns ErrSessionActive when one already exists; the partial unique index
// on (chat_id, thread_id) WHERE status = 'active' is the authority, so
// concurrent starts race safely.
func (s *PGStore) CreateSession(ctx context.Context, session *colosseum.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.Status = colosseum.StatusActive
	session.RoundIndex = 0

	err := s.db.QueryRow(ctx,
		`INSERT INTO debate_sessions (id, chat_id, thread_id, topic_title, turn_order, status, round_index, max_rounds)
		 VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		 RETURNING started_at`,
		session.ID, session.ChatID, session.ThreadID, session.TopicTitle,
		session.TurnOrder, session.Status, session.MaxRounds,
	).Scan(&session.StartedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return colosseum.ErrSessionActive
		}
		return fmt.Errorf("colosseum: create session: %w", err)
	}

	return nil
}

// ActiveSession returns the active session for a (chat, thread) pair.
func (s *PGStore) ActiveSession(ctx context.Context, chatID, threadID int64) (*colosseum.Session, error) {
	session := &colosseum.Session{ChatID: chatID, ThreadID: threadID}

	err := s.db.QueryRow(ctx,
		`SELECT id, topic_title, turn_order, status, round_index, max_rounds, end_reason, started_at, ended_at
		 FROM debate_sessions
		 WHERE chat_id = $1 AND thread_id = $2 AND status = 'active'`,
		chatID, threadID,
	).Scan(&session.ID, &session.TopicTitle, &session.TurnOrder, &session.Status,
		&session.RoundIndex, &session.MaxRounds, &session.EndReason,
		&session.StartedAt, &session.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, colosseum.ErrNoActiveSession
		}
		return nil, fmt.Errorf("colosseum: get active session: %w", err)
	}

	return session, nil
}

// SessionsForChat returns every active session in a chat, across threads.
func (s *PGStore) SessionsForChat(ctx context.Context, chatID int64) ([]colosseum.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, chat_id, thread_id, topic_title, turn_order, status, round_index, max_rounds, end_reason, started_at, ended_at
		 FROM debate_sessions
		 WHERE chat_id = $1 AND status = 'active'
		 ORDER BY started_at ASC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("colosseum: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []colosseum.Session
	for rows.Next() {
		var session colosseum.Session
		err := rows.Scan(&session.ID, &session.ChatID, &session.ThreadID,
			&session.TopicTitle, &session.TurnOrder, &session.Status,
			&session.RoundIndex, &session.MaxRounds, &session.EndReason,
			&session.StartedAt, &session.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("colosseum: scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("colosseum: list sessions: %w", err)
	}

	return sessions, nil
}

// ActiveSessions returns every active session across all chats. Used at
// startup to respawn loops for sessions that survived a restart.
func (s *PGStore) ActiveSessions(ctx context.Context) ([]colosseum.Session, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, chat_id, thread_id, topic_title, turn_order, status, round_index, max_rounds, end_reason, started_at, ended_at
		 FROM debate_sessions
		 WHERE status = 'active'
		 ORDER BY started_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("colosseum: list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []colosseum.Session
	for rows.Next() {
		var session colosseum.Session
		err := rows.Scan(&session.ID, &session.ChatID, &session.ThreadID,
			&session.TopicTitle, &session.TurnOrder, &session.Status,
			&session.RoundIndex, &session.MaxRounds, &session.EndReason,
			&session.StartedAt, &session.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("colosseum: scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("colosseum: list active sessions: %w", err)
	}

	return sessions, nil
}

// AdvanceRound increments the session's round index and returns the new
// value. The scheduler calls this exactly once per completed round.
func (s *PGStore) AdvanceRound(ctx context.Context, sessionID string) (int, error) {
	var round int
	err := s.db.QueryRow(ctx,
		`UPDATE debate_sessions SET round_index = round_index + 1
		 WHERE id = $1
		 RETURNING round_index`,
		sessionID,
	).Scan(&round)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, colosseum.ErrNoActiveSession
		}
		return 0, fmt.Errorf("colosseum: advance round: %w", err)
	}
	return round, nil
}

// EndSession marks a session ended. Repeated calls keep the first end state.
func (s *PGStore) EndSession(ctx context.Context, sessionID, reason string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE debate_sessions
		 SET status = 'ended', end_reason = $2, ended_at = NOW()
		 WHERE id = $1 AND status = 'active'`,
		sessionID, reason,
	)
	if err != nil {
		return fmt.Errorf("colosseum: end session: %w", err)
	}
	return nil
}
