// Package debate contains the orchestrator: the stateful scheduler that
// runs one timed round-robin loop per active session, invokes personas and
// the judge through the generation gateway, and owns topic rotation.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/meikuraledutech/colosseum"
)

// Options are the orchestrator's cadence and policy knobs. Zero values fall
// back to the documented defaults.
type Options struct {
	Cadence          time.Duration // wall-clock interval between turns (default 120s)
	MaxTokens        int           // persona output budget (default 120)
	ContextTurns     int           // context window size in messages (default 4)
	MaxRounds        int           // rounds before a session ends (default 3)
	JudgeEveryRounds int           // judge summary period in completed rounds (default 2)
	JudgeMaxTokens   int           // judge output budget (default 120)
	FailurePolicy    string        // colosseum.FailurePolicyRetry or ...Skip
	JudgeRotation    bool          // rotate the topic after each judge summary
}

func (o Options) withDefaults() Options {
	if o.Cadence <= 0 {
		o.Cadence = 120 * time.Second
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 120
	}
	if o.ContextTurns <= 0 {
		o.ContextTurns = 4
	}
	if o.MaxRounds <= 0 {
		o.MaxRounds = 3
	}
	if o.JudgeEveryRounds < 0 {
		o.JudgeEveryRounds = 0
	}
	if o.JudgeMaxTokens <= 0 {
		o.JudgeMaxTokens = 120
	}
	if o.FailurePolicy == "" {
		o.FailurePolicy = colosseum.FailurePolicyRetry
	}
	return o
}

type sessionKey struct {
	chatID   int64
	threadID int64
}

// Orchestrator owns zero or more per-session loops. Loops share nothing but
// the store and the recorder; each loop holds only its own session key.
type Orchestrator struct {
	store     colosseum.Store
	gateway   *Gateway
	courier   colosseum.Courier
	recorder  *Recorder
	rotator   *Rotator
	builder   *promptBuilder
	personas  map[string]colosseum.Persona
	turnOrder []string
	judge     colosseum.Persona
	opts      Options
	log       *slog.Logger

	mu    sync.Mutex
	loops map[sessionKey]*loop
	wg    sync.WaitGroup
}

// New wires an Orchestrator and validates the persona/provider references up
// front: a bad reference is a configuration error surfaced here, never
// mid-loop.
func New(
	store colosseum.Store,
	gateway *Gateway,
	courier colosseum.Courier,
	rotator *Rotator,
	personas []colosseum.Persona,
	judge colosseum.Persona,
	opts Options,
	log *slog.Logger,
) (*Orchestrator, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("%w: no personas configured", colosseum.ErrInvalidConfig)
	}

	byKey := make(map[string]colosseum.Persona, len(personas))
	turnOrder := make([]string, 0, len(personas))
	for _, p := range personas {
		if !gateway.HasProvider(p.Provider) {
			return nil, fmt.Errorf("%w: persona %q references unknown provider %q", colosseum.ErrInvalidConfig, p.Key, p.Provider)
		}
		byKey[p.Key] = p
		turnOrder = append(turnOrder, p.Key)
	}
	if !gateway.HasProvider(judge.Provider) {
		return nil, fmt.Errorf("%w: judge references unknown provider %q", colosseum.ErrInvalidConfig, judge.Provider)
	}

	opts = opts.withDefaults()
	if opts.FailurePolicy == colosseum.FailurePolicySkip {
		gateway.WithRetry(1, 0)
	}

	return &Orchestrator{
		store:     store,
		gateway:   gateway,
		courier:   courier,
		recorder:  NewRecorder(store, log),
		rotator:   rotator,
		builder:   newPromptBuilder(personas, judge),
		personas:  byKey,
		turnOrder: turnOrder,
		judge:     judge,
		opts:      opts,
		log:       log,
		loops:     make(map[sessionKey]*loop),
	}, nil
}

// StartSession creates a session for a (chat, thread) pair and spawns its
// loop. An empty topic falls back to the rotator's current topic. Fails
// with ErrSessionActive when one is already running there.
func (o *Orchestrator) StartSession(ctx context.Context, chatID, threadID int64, topicTitle string) (*colosseum.Session, error) {
	if topicTitle == "" {
		topic, ok := o.rotator.Current()
		if !ok {
			return nil, fmt.Errorf("%w: no topics available", colosseum.ErrInvalidConfig)
		}
		topicTitle = topic.Title
	}

	session := &colosseum.Session{
		ChatID:     chatID,
		ThreadID:   threadID,
		TopicTitle: topicTitle,
		TurnOrder:  append([]string(nil), o.turnOrder...),
		MaxRounds:  o.opts.MaxRounds,
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	o.spawnLoop(*session)

	o.log.Info("session started",
		"session_id", session.ID,
		"chat_id", chatID,
		"thread_id", threadID,
		"topic", topicTitle)

	out := *session
	return &out, nil
}

// ResumeSessions respawns a loop for every active session found in the
// store. Called once at startup so sessions that survived a restart pick up
// where they left off instead of blocking their (chat, thread) pair forever.
// Returns the number of sessions resumed.
func (o *Orchestrator) ResumeSessions(ctx context.Context) (int, error) {
	sessions, err := o.store.ActiveSessions(ctx)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, session := range sessions {
		if l := o.lookupLoop(session.ChatID, session.ThreadID); l != nil {
			continue
		}
		o.spawnLoop(session)
		resumed++
		o.log.Info("session resumed",
			"session_id", session.ID,
			"chat_id", session.ChatID,
			"thread_id", session.ThreadID,
			"round_index", session.RoundIndex,
			"topic", session.TopicTitle)
	}
	return resumed, nil
}

func (o *Orchestrator) spawnLoop(session colosseum.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{
		orc:      o,
		session:  session,
		stopCh:   make(chan struct{}),
		commands: make(chan loopCommand, 1),
		cancel:   cancel,
	}

	key := sessionKey{session.ChatID, session.ThreadID}
	o.mu.Lock()
	o.loops[key] = l
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.removeLoop(key, l)
		l.run(ctx)
	}()
}

func (o *Orchestrator) removeLoop(key sessionKey, l *loop) {
	o.mu.Lock()
	if o.loops[key] == l {
		delete(o.loops, key)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) lookupLoop(chatID, threadID int64) *loop {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loops[sessionKey{chatID, threadID}]
}

// StopSession ends the session for a (chat, thread) pair. The session is
// ended synchronously; the loop notices before its next tick begins.
func (o *Orchestrator) StopSession(ctx context.Context, chatID, threadID int64) error {
	session, err := o.store.ActiveSession(ctx, chatID, threadID)
	if err != nil {
		return err
	}

	if err := o.store.EndSession(ctx, session.ID, "stopped"); err != nil {
		return err
	}
	if l := o.lookupLoop(chatID, threadID); l != nil {
		l.stop()
	}

	o.log.Info("session stopped", "session_id", session.ID, "chat_id", chatID, "thread_id", threadID)
	return nil
}

// StopAllForChat ends every active session in a chat, across threads.
// Returns the number stopped.
func (o *Orchestrator) StopAllForChat(ctx context.Context, chatID int64) (int, error) {
	sessions, err := o.store.SessionsForChat(ctx, chatID)
	if err != nil {
		return 0, err
	}

	for _, session := range sessions {
		if err := o.store.EndSession(ctx, session.ID, "stopped"); err != nil {
			o.log.Warn("end session failed", "session_id", session.ID, "error", err)
			continue
		}
		if l := o.lookupLoop(session.ChatID, session.ThreadID); l != nil {
			l.stop()
		}
	}
	return len(sessions), nil
}

// SummaryNow requests an out-of-cadence judge summary for a session.
func (o *Orchestrator) SummaryNow(ctx context.Context, chatID, threadID int64) error {
	l := o.lookupLoop(chatID, threadID)
	if l == nil {
		return colosseum.ErrNoActiveSession
	}

	select {
	case l.commands <- cmdSummary:
	default:
		// one is already queued
	}
	return nil
}

// Status returns the active session for a (chat, thread) pair.
func (o *Orchestrator) Status(ctx context.Context, chatID, threadID int64) (*colosseum.Session, error) {
	return o.store.ActiveSession(ctx, chatID, threadID)
}

// RotateTopic advances the catalog pointer (admin command path).
func (o *Orchestrator) RotateTopic() (colosseum.Topic, error) {
	return o.rotator.Rotate()
}

// AddTopic appends a topic to the catalog and persists it, best effort.
func (o *Orchestrator) AddTopic(ctx context.Context, topic colosseum.Topic) (colosseum.Topic, error) {
	if topic.Title == "" {
		return colosseum.Topic{}, fmt.Errorf("%w: topic title is empty", colosseum.ErrInvalidConfig)
	}
	if err := o.store.AddTopic(ctx, &topic); err != nil {
		o.log.Warn("topic not persisted", "title", topic.Title, "error", err)
	}
	o.rotator.Add(topic)
	return topic, nil
}

// Topics lists the catalog in order.
func (o *Orchestrator) Topics() []colosseum.Topic {
	return o.rotator.Topics()
}

// GenerateTopics asks the judge role for n new topics and appends them to
// the catalog.
func (o *Orchestrator) GenerateTopics(ctx context.Context, n int) ([]colosseum.Topic, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: topic count must be positive", colosseum.ErrInvalidConfig)
	}

	existing := make([]string, 0, len(o.rotator.Topics()))
	for _, t := range o.rotator.Topics() {
		existing = append(existing, t.Title)
	}

	prompt := o.builder.topicsPrompt(o.judge, n, existing)
	result, err := o.gateway.Generate(ctx, o.judge.Provider, prompt)
	if err != nil {
		o.recorder.RecordFailure(ctx, "", o.judge, err)
		return nil, err
	}
	o.recorder.RecordResult(ctx, "", o.judge, result.Usage)

	var topics []colosseum.Topic
	for _, line := range strings.Split(result.Content, "\n") {
		title := strings.TrimSpace(line)
		title = strings.TrimLeft(title, "-*0123456789. ")
		if title == "" {
			continue
		}
		topic, err := o.AddTopic(ctx, colosseum.Topic{Title: title})
		if err != nil {
			continue
		}
		topics = append(topics, topic)
		if len(topics) == n {
			break
		}
	}

	return topics, nil
}

// UsageTotals aggregates recorded usage, optionally for one session.
func (o *Orchestrator) UsageTotals(ctx context.Context, sessionID string) (colosseum.UsageTotals, error) {
	return o.store.UsageTotals(ctx, sessionID)
}

// Shutdown ends all running loops and waits for them to exit. Active
// sessions are ended with a shutdown reason.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	loops := make([]*loop, 0, len(o.loops))
	for _, l := range o.loops {
		loops = append(loops, l)
	}
	o.mu.Unlock()

	for _, l := range loops {
		if err := o.store.EndSession(ctx, l.session.ID, "shutdown"); err != nil {
			o.log.Warn("end session failed", "session_id", l.session.ID, "error", err)
		}
		l.cancel()
	}
	o.wg.Wait()
}
