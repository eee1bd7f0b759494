package debate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meikuraledutech/colosseum"
	"github.com/meikuraledutech/colosseum/memory"
)

func fourPersonas() []colosseum.Persona {
	out := make([]colosseum.Persona, 0, 4)
	for _, key := range []string{"a", "b", "c", "d"} {
		out = append(out, colosseum.Persona{
			Key: key, Name: key, SystemPrompt: "You are " + key + ".",
			Provider: "stub", Model: "m",
		})
	}
	return out
}

// Four speakers, one round, no judge interval reached: exactly four messages
// in turn order, then the session ends.
func TestTickFourSpeakerSingleRound(t *testing.T) {
	store := memory.New()
	provider := &stubProvider{}
	gateway := NewGateway(map[string]colosseum.Provider{"stub": provider}).WithRetry(1, 0)
	rotator := NewRotator(defaultTopics(), colosseum.RotationWrap)

	orc, err := New(store, gateway, &stubCourier{}, rotator, fourPersonas(), testJudge(), Options{MaxRounds: 1}, testLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	session := &colosseum.Session{
		ChatID:     1,
		TopicTitle: "test topic",
		TurnOrder:  []string{"a", "b", "c", "d"},
		MaxRounds:  1,
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	l := &loop{
		orc:      orc,
		session:  *session,
		stopCh:   make(chan struct{}),
		commands: make(chan loopCommand, 1),
		cancel:   func() {},
	}

	for i := 0; i < 3; i++ {
		if done := l.tick(ctx); done {
			t.Fatalf("tick %d ended the session early", i+1)
		}
	}
	if done := l.tick(ctx); !done {
		t.Fatalf("fourth tick should complete the round and end the session")
	}

	msgs, err := store.RecentMessages(ctx, l.session.ID, 0)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, speaker := range want {
		if msgs[i].Speaker != speaker {
			t.Fatalf("message %d: expected speaker %q, got %q", i, speaker, msgs[i].Speaker)
		}
	}
	if l.session.RoundIndex != 1 {
		t.Fatalf("expected round index 1, got %d", l.session.RoundIndex)
	}
}

// End-to-end through the real timer loop: short cadence, one round, the
// session runs to completion on its own.
func TestLoopRunsToCompletion(t *testing.T) {
	f := newFixture(t, Options{Cadence: 5 * time.Millisecond, MaxRounds: 1}, defaultTopics(), colosseum.RotationWrap)
	ctx := context.Background()

	session, err := f.orc.StartSession(ctx, 3, 0, "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		_, err := f.store.ActiveSession(ctx, 3, 0)
		if errors.Is(err, colosseum.ErrNoActiveSession) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("session did not finish within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	f.orc.Shutdown(ctx)

	msgs, err := f.store.RecentMessages(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("RecentMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected one full round of 2 messages, got %d", len(msgs))
	}
}

// SummaryNow reaches a running loop through its command channel.
func TestSummaryNowTriggersJudge(t *testing.T) {
	f := newFixture(t, Options{Cadence: time.Hour}, defaultTopics(), colosseum.RotationWrap)
	ctx := context.Background()

	session, err := f.orc.StartSession(ctx, 4, 0, "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	defer f.orc.Shutdown(ctx)

	if err := f.orc.SummaryNow(ctx, 4, 0); err != nil {
		t.Fatalf("SummaryNow failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		msgs, err := f.store.RecentMessages(ctx, session.ID, 0)
		if err != nil {
			t.Fatalf("RecentMessages failed: %v", err)
		}
		if len(msgs) == 1 {
			if msgs[0].Speaker != colosseum.SpeakerJudge {
				t.Fatalf("expected judge message, got speaker %q", msgs[0].Speaker)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("judge summary never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
