package debate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/meikuraledutech/colosseum"
)

type loopCommand int

const (
	cmdSummary loopCommand = iota
)

// loop is one session's timer-driven scheduler. Everything inside a loop is
// strictly sequential: generation, delivery, persistence, and round
// advancement for a turn finish (or fail) before the next turn begins.
type loop struct {
	orc     *Orchestrator
	session colosseum.Session

	// cursor walks turn_order within the current round; session.RoundIndex
	// counts completed rounds. The cursor rolling over is the one moment
	// AdvanceRound is called.
	cursor      int
	lastSummary string

	stopOnce sync.Once
	stopCh   chan struct{}
	commands chan loopCommand
	cancel   context.CancelFunc
}

// stop signals the loop to exit. Takes effect before the next tick begins;
// a turn already in flight completes first.
func (l *loop) stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *loop) run(ctx context.Context) {
	cadence := l.orc.opts.Cadence
	timer := time.NewTimer(cadence)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			l.endSession("stopped")
			return
		case <-l.commands:
			l.judgeTurn(ctx)
		case <-timer.C:
			if l.tick(ctx) {
				return
			}
			timer.Reset(cadence)
		}
	}
}

// tick runs one turn and reports whether the session reached a terminal
// state. Every error local to the turn is absorbed here; only stop, round
// exhaustion, and topic exhaustion end the session.
func (l *loop) tick(ctx context.Context) (done bool) {
	select {
	case <-l.stopCh:
		l.endSession("stopped")
		return true
	default:
	}

	speaker := l.session.TurnOrder[l.cursor]
	if persona, ok := l.orc.personas[speaker]; ok {
		l.personaTurn(ctx, persona)
	} else {
		l.orc.log.Warn("unknown speaker in turn order", "session_id", l.session.ID, "speaker", speaker)
	}

	l.cursor++
	if l.cursor < len(l.session.TurnOrder) {
		return false
	}
	l.cursor = 0

	round, err := l.orc.store.AdvanceRound(ctx, l.session.ID)
	if err != nil {
		// Keep counting locally so the session still terminates.
		l.orc.log.Warn("advance round failed", "session_id", l.session.ID, "error", err)
		round = l.session.RoundIndex + 1
	}
	l.session.RoundIndex = round

	if round >= l.session.MaxRounds {
		l.endSession("max rounds")
		return true
	}

	if l.orc.opts.JudgeEveryRounds > 0 && round%l.orc.opts.JudgeEveryRounds == 0 {
		l.judgeTurn(ctx)

		if l.orc.opts.JudgeRotation {
			topic, err := l.orc.rotator.Rotate()
			if errors.Is(err, colosseum.ErrTopicsExhausted) {
				l.endSession("topics exhausted")
				return true
			}
			if err == nil {
				l.session.TopicTitle = topic.Title
			}
		}
	}

	return false
}

// personaTurn generates and emits one persona utterance. A generation
// failure is recorded and the turn is skipped; the round-robin moves on.
func (l *loop) personaTurn(ctx context.Context, persona colosseum.Persona) {
	log := l.orc.log.With("session_id", l.session.ID, "speaker", persona.Key)

	recent, err := l.orc.store.RecentMessages(ctx, l.session.ID, l.orc.opts.ContextTurns)
	if err != nil {
		log.Warn("context window unavailable", "error", err)
		recent = nil
	}

	prompt := l.orc.builder.personaPrompt(persona, l.session.TopicTitle, recent, l.lastSummary, l.orc.opts.MaxTokens)
	result, err := l.orc.gateway.Generate(ctx, persona.Provider, prompt)
	if err != nil {
		l.orc.recorder.RecordFailure(ctx, l.session.ID, persona, err)
		log.Warn("turn skipped", "error", err)
		return
	}

	l.emit(ctx, persona, result.Content, result.Content, &result.Usage)
	l.orc.recorder.RecordResult(ctx, l.session.ID, persona, result.Usage)
}

// judgeTurn produces a judge summary: same emit path as a persona turn, but
// the speaker is the judge sentinel and the summary feeds later context
// windows.
func (l *loop) judgeTurn(ctx context.Context) {
	judge := l.orc.judge
	log := l.orc.log.With("session_id", l.session.ID, "speaker", judge.Key)

	window := l.orc.opts.ContextTurns * len(l.session.TurnOrder)
	recent, err := l.orc.store.RecentMessages(ctx, l.session.ID, window)
	if err != nil {
		log.Warn("context window unavailable", "error", err)
		recent = nil
	}

	prompt := l.orc.builder.judgePrompt(judge, l.session.TopicTitle, recent, l.orc.opts.JudgeMaxTokens)
	result, err := l.orc.gateway.Generate(ctx, judge.Provider, prompt)
	if err != nil {
		l.orc.recorder.RecordFailure(ctx, l.session.ID, judge, err)
		log.Warn("judge summary skipped", "error", err)
		return
	}

	l.lastSummary = result.Content
	l.emit(ctx, judge, judge.Name+"'s summary:\n"+result.Content, result.Content, &result.Usage)
	l.orc.recorder.RecordResult(ctx, l.session.ID, judge, result.Usage)
}

// emit delivers text externally and appends the message. Delivery and
// persistence failures are both non-fatal: they are logged and the loop
// proceeds.
func (l *loop) emit(ctx context.Context, persona colosseum.Persona, deliverText, content string, usage *colosseum.Usage) {
	log := l.orc.log.With("session_id", l.session.ID, "speaker", persona.Key)

	deliveryID, err := l.orc.courier.Deliver(ctx, l.session.ChatID, l.session.ThreadID, persona.Key, deliverText)
	if err != nil {
		log.Warn("delivery failed", "error", errors.Join(colosseum.ErrDeliveryFailed, err))
		deliveryID = ""
	}

	msg, err := l.orc.store.AddMessage(ctx, l.session.ID, persona.Key, colosseum.RoleAssistant, content, usage)
	if err != nil {
		log.Warn("message not persisted", "error", err)
		return
	}

	if deliveryID != "" {
		if err := l.orc.store.SetDeliveryID(ctx, msg.ID, deliveryID); err != nil {
			log.Warn("delivery id not persisted", "error", err)
		}
	}
}

// endSession marks the session ended. Runs on a background context so a
// cancelled loop context cannot lose the terminal write.
func (l *loop) endSession(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.orc.store.EndSession(ctx, l.session.ID, reason); err != nil {
		l.orc.log.Warn("end session failed", "session_id", l.session.ID, "error", err)
	}
	l.orc.log.Info("session ended",
		"session_id", l.session.ID,
		"round_index", l.session.RoundIndex,
		"reason", reason)
}
