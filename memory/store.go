// Package memory provides an in-memory Store. It backs the orchestrator when
// no database is configured: the debate runs normally, records are simply
// lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/colosseum"
)

type chatKey struct {
	chatID   int64
	threadID int64
}

// Store keeps all debate state in process memory, guarded by a single
// RWMutex. Good enough: the scheduler is sequential per session and the
// command surface is low traffic.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*colosseum.Session
	active   map[chatKey]string
	messages map[string][]colosseum.Message
	topics   []colosseum.Topic
	usage    []colosseum.UsageEvent
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*colosseum.Session),
		active:   make(map[chatKey]string),
		messages: make(map[string][]colosseum.Message),
	}
}

// CreateSchema is a no-op for the in-memory store.
func (s *Store) CreateSchema(ctx context.Context) error {
	return nil
}

// CreateSession registers a new active session. Fails with ErrSessionActive
// when the (chat, thread) pair already has one.
func (s *Store) CreateSession(ctx context.Context, session *colosseum.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chatKey{session.ChatID, session.ThreadID}
	if id, ok := s.active[key]; ok {
		if existing := s.sessions[id]; existing != nil && existing.Active() {
			return colosseum.ErrSessionActive
		}
	}

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.Status = colosseum.StatusActive
	session.RoundIndex = 0
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}

	stored := *session
	s.sessions[session.ID] = &stored
	s.active[key] = session.ID
	return nil
}

// ActiveSession returns the active session for a (chat, thread) pair.
func (s *Store) ActiveSession(ctx context.Context, chatID, threadID int64) (*colosseum.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[chatKey{chatID, threadID}]
	if !ok {
		return nil, colosseum.ErrNoActiveSession
	}
	session, ok := s.sessions[id]
	if !ok || !session.Active() {
		return nil, colosseum.ErrNoActiveSession
	}

	out := *session
	return &out, nil
}

// SessionsForChat returns every active session in a chat, across threads.
func (s *Store) SessionsForChat(ctx context.Context, chatID int64) ([]colosseum.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []colosseum.Session
	for key, id := range s.active {
		if key.chatID != chatID {
			continue
		}
		if session, ok := s.sessions[id]; ok && session.Active() {
			out = append(out, *session)
		}
	}
	return out, nil
}

// ActiveSessions returns every active session across all chats.
func (s *Store) ActiveSessions(ctx context.Context) ([]colosseum.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []colosseum.Session
	for _, id := range s.active {
		if session, ok := s.sessions[id]; ok && session.Active() {
			out = append(out, *session)
		}
	}
	return out, nil
}

// AdvanceRound increments the session's round index and returns the new
// value. Ending the session when the index reaches max rounds is the
// caller's decision.
func (s *Store) AdvanceRound(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return 0, colosseum.ErrNoActiveSession
	}
	session.RoundIndex++
	return session.RoundIndex, nil
}

// EndSession marks a session ended. Tolerates repeated calls.
func (s *Store) EndSession(ctx context.Context, sessionID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return colosseum.ErrNoActiveSession
	}
	if session.Status == colosseum.StatusEnded {
		return nil
	}
	now := time.Now()
	session.Status = colosseum.StatusEnded
	session.EndReason = reason
	session.EndedAt = &now
	delete(s.active, chatKey{session.ChatID, session.ThreadID})
	return nil
}

// AddMessage appends a message with the next per-session seq.
func (s *Store) AddMessage(ctx context.Context, sessionID, speaker, role, content string, usage *colosseum.Usage) (*colosseum.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, colosseum.ErrNoActiveSession
	}

	msg := colosseum.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Seq:       len(s.messages[sessionID]) + 1,
		Speaker:   speaker,
		Role:      role,
		Content:   content,
		Usage:     usage,
		CreatedAt: time.Now(),
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)

	out := msg
	return &out, nil
}

// SetDeliveryID stores the platform-assigned message id after delivery.
func (s *Store) SetDeliveryID(ctx context.Context, messageID, deliveryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sessionID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				s.messages[sessionID][i].DeliveryID = deliveryID
				return nil
			}
		}
	}
	return nil
}

// RecentMessages returns the last limit messages of a session in
// chronological order. limit <= 0 returns everything.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]colosseum.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]colosseum.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// AddTopic appends a topic to the catalog.
func (s *Store) AddTopic(ctx context.Context, topic *colosseum.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}
	s.topics = append(s.topics, *topic)
	return nil
}

// ListTopics returns the catalog in insertion order.
func (s *Store) ListTopics(ctx context.Context) ([]colosseum.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]colosseum.Topic, len(s.topics))
	copy(out, s.topics)
	return out, nil
}

// AddUsage records one generation attempt outcome.
func (s *Store) AddUsage(ctx context.Context, event *colosseum.UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.usage = append(s.usage, *event)
	return nil
}

// UsageTotals aggregates usage events, optionally filtered by session.
func (s *Store) UsageTotals(ctx context.Context, sessionID string) (colosseum.UsageTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals colosseum.UsageTotals
	for _, ev := range s.usage {
		if sessionID != "" && ev.SessionID != sessionID {
			continue
		}
		totals.Calls++
		if ev.Status == colosseum.UsageError {
			totals.Failures++
			continue
		}
		if ev.PromptTokens > 0 {
			totals.PromptTokens += ev.PromptTokens
		}
		if ev.CompletionTokens > 0 {
			totals.CompletionTokens += ev.CompletionTokens
		}
		if ev.TotalTokens > 0 {
			totals.TotalTokens += ev.TotalTokens
		}
	}
	return totals, nil
}

// Ensure Store implements colosseum.Store at compile time.
var _ colosseum.Store = (*Store)(nil)
