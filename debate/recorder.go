package debate

import (
	"context"
	"log/slog"

	"github.com/meikuraledutech/colosseum"
)

// Recorder writes usage events fire-and-forget. Storage trouble becomes a
// warning, never an error crossing back into the scheduler.
type Recorder struct {
	store colosseum.Store
	log   *slog.Logger
}

// NewRecorder wraps a store.
func NewRecorder(store colosseum.Store, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record persists one usage event, best effort.
func (r *Recorder) Record(ctx context.Context, event *colosseum.UsageEvent) {
	if r.store == nil {
		return
	}
	if err := r.store.AddUsage(ctx, event); err != nil {
		r.log.Warn("usage event dropped", "session_id", event.SessionID, "error", err)
	}
}

// RecordResult builds and records the event for a successful generation.
func (r *Recorder) RecordResult(ctx context.Context, sessionID string, persona colosseum.Persona, usage colosseum.Usage) {
	r.Record(ctx, &colosseum.UsageEvent{
		SessionID:        sessionID,
		Provider:         persona.Provider,
		Model:            persona.Model,
		Speaker:          persona.Key,
		Status:           colosseum.UsageOK,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
	})
}

// RecordFailure builds and records the event for a failed generation, with
// the classified failure as the error marker.
func (r *Recorder) RecordFailure(ctx context.Context, sessionID string, persona colosseum.Persona, err error) {
	r.Record(ctx, &colosseum.UsageEvent{
		SessionID:        sessionID,
		Provider:         persona.Provider,
		Model:            persona.Model,
		Speaker:          persona.Key,
		Status:           colosseum.UsageError,
		Error:            colosseum.ClassifyFailure(err) + ": " + err.Error(),
		PromptTokens:     -1,
		CompletionTokens: -1,
		TotalTokens:      -1,
	})
}
