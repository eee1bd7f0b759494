package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meikuraledutech/colosseum"
)

// nullableSessionID maps an empty session ID to NULL. Events not tied to a
// session (topic generation) would otherwise be rejected by the UUID column.
func nullableSessionID(sessionID string) any {
	if sessionID == "" {
		return nil
	}
	return sessionID
}

// usageTotalsQuery builds the aggregate query. The session filter is decided
// here rather than in SQL: a single parameterized predicate like
// ($1 = '' OR session_id = $1) would pin $1 to text and break the comparison
// against the UUID column.
func usageTotalsQuery(sessionID string) (string, []any) {
	query := `SELECT COUNT(*),
	                 COUNT(*) FILTER (WHERE status = 'error'),
	                 COALESCE(SUM(prompt_tokens) FILTER (WHERE status = 'ok' AND prompt_tokens > 0), 0),
	                 COALESCE(SUM(completion_tokens) FILTER (WHERE status = 'ok' AND completion_tokens > 0), 0),
	                 COALESCE(SUM(total_tokens) FILTER (WHERE status = 'ok' AND total_tokens > 0), 0)
	          FROM debate_usage_events`
	if sessionID == "" {
		return query, nil
	}
	return query + ` WHERE session_id = $1`, []any{sessionID}
}

// AddUsage inserts one generation attempt record. Callers treat failures as
// non-fatal; the scheduler never sees them.
func (s *PGStore) AddUsage(ctx context.Context, event *colosseum.UsageEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO debate_usage_events (id, session_id, provider, model, speaker, status, error, prompt_tokens, completion_tokens, total_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		event.ID, nullableSessionID(event.SessionID), event.Provider, event.Model, event.Speaker,
		event.Status, event.Error, event.PromptTokens, event.CompletionTokens, event.TotalTokens,
	).Scan(&event.CreatedAt)
	if err != nil {
		return fmt.Errorf("colosseum: add usage event: %w", err)
	}

	return nil
}

// UsageTotals aggregates usage events, optionally filtered by session.
// Unknown token counts (-1) are excluded from the sums.
func (s *PGStore) UsageTotals(ctx context.Context, sessionID string) (colosseum.UsageTotals, error) {
	var totals colosseum.UsageTotals

	query, args := usageTotalsQuery(sessionID)
	err := s.db.QueryRow(ctx, query, args...).
		Scan(&totals.Calls, &totals.Failures, &totals.PromptTokens, &totals.CompletionTokens, &totals.TotalTokens)
	if err != nil {
		return colosseum.UsageTotals{}, fmt.Errorf("colosseum: usage totals: %w", err)
	}

	return totals, nil
}
