// Package colosseum holds the domain types and contracts for running
// automated round-robin debates between scripted AI personas.
package colosseum

import "time"

// Message roles, OpenAI chat-completions convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SpeakerJudge is the reserved speaker key for the judge agent. Persona keys
// must never collide with it.
const SpeakerJudge = "judge"

// Session statuses.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Turn failure policies: retry a failed generation once with backoff, or
// skip straight to the next speaker. Either way the turn counts as
// attempted.
const (
	FailurePolicyRetry = "retry"
	FailurePolicySkip  = "skip"
)

// Topic rotation policies at catalog end.
const (
	RotationWrap = "wrap"
	RotationHalt = "halt"
)

// Persona is one scripted debate participant. Immutable once loaded.
type Persona struct {
	Key          string  `json:"key" yaml:"key"`
	Name         string  `json:"name" yaml:"name"`
	SystemPrompt string  `json:"system_prompt" yaml:"system_prompt"`
	Temperature  float64 `json:"temperature" yaml:"temperature"`
	Provider     string  `json:"provider" yaml:"provider"`
	Model        string  `json:"model" yaml:"model"`
}

// Topic is one entry in the append-only debate topic catalog.
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session is one bounded debate in a specific chat/thread. RoundIndex counts
// completed passes through TurnOrder, not individual turns.
type Session struct {
	ID         string     `json:"id"`
	ChatID     int64      `json:"chat_id"`
	ThreadID   int64      `json:"thread_id"`
	TopicTitle string     `json:"topic_title"`
	TurnOrder  []string   `json:"turn_order"`
	Status     string     `json:"status"`
	RoundIndex int        `json:"round_index"`
	MaxRounds  int        `json:"max_rounds"`
	EndReason  string     `json:"end_reason,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the session is still running.
func (s *Session) Active() bool {
	return s.Status == StatusActive
}

// Usage holds token counts from a provider response. A count of -1 means the
// provider did not report it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is a single utterance produced during a session. Append-only.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Seq        int       `json:"seq"`
	Speaker    string    `json:"speaker"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Usage      *Usage    `json:"usage,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Usage event statuses.
const (
	UsageOK    = "ok"
	UsageError = "error"
)

// UsageEvent records the outcome of one generation attempt. Best effort:
// losing one never affects debate correctness.
type UsageEvent struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Speaker          string    `json:"speaker"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageTotals aggregates usage events for the usage query command.
type UsageTotals struct {
	Calls            int `json:"calls"`
	Failures         int `json:"failures"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Prompt is one fully assembled generation request: the system framing plus
// the bounded conversation window, already role-tagged and in chronological
// order.
type Prompt struct {
	Model       string
	System      string
	History     []PromptEntry
	Temperature float64
	MaxTokens   int
}

// PromptEntry is one role-tagged line of context.
type PromptEntry struct {
	Role    string
	Content string
}

// Result is what a provider returns: content plus token usage.
type Result struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}
