package debate

import (
	"strings"
	"testing"

	"github.com/meikuraledutech/colosseum"
)

func testBuilder() *promptBuilder {
	return newPromptBuilder(testPersonas(), testJudge())
}

func TestPersonaPromptWindow(t *testing.T) {
	b := testBuilder()
	persona := testPersonas()[0]

	recent := []colosseum.Message{
		{Speaker: "a", Role: colosseum.RoleAssistant, Content: "first"},
		{Speaker: "b", Role: colosseum.RoleAssistant, Content: "second"},
	}

	prompt := b.personaPrompt(persona, "space travel", recent, "", 120)

	if !strings.Contains(prompt.System, persona.SystemPrompt) {
		t.Fatalf("system prompt missing persona instructions")
	}
	if !strings.Contains(prompt.System, "space travel") {
		t.Fatalf("system prompt missing topic")
	}
	if prompt.MaxTokens != 120 {
		t.Fatalf("expected max tokens 120, got %d", prompt.MaxTokens)
	}
	if prompt.Model != persona.Model {
		t.Fatalf("expected model %q, got %q", persona.Model, prompt.Model)
	}

	if len(prompt.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(prompt.History))
	}
	if prompt.History[0].Content != "Alpha: first" {
		t.Fatalf("speaker name not prefixed: %q", prompt.History[0].Content)
	}
	if prompt.History[1].Content != "Beta: second" {
		t.Fatalf("speaker name not prefixed: %q", prompt.History[1].Content)
	}
	if prompt.History[0].Role != colosseum.RoleAssistant {
		t.Fatalf("history entry lost its role: %q", prompt.History[0].Role)
	}
}

func TestPersonaPromptEmptyHistoryOpensDebate(t *testing.T) {
	b := testBuilder()

	prompt := b.personaPrompt(testPersonas()[0], "topic", nil, "", 120)

	if len(prompt.History) != 1 {
		t.Fatalf("expected 1 synthetic entry, got %d", len(prompt.History))
	}
	if prompt.History[0].Role != colosseum.RoleUser {
		t.Fatalf("opening entry should carry the user role, got %q", prompt.History[0].Role)
	}
	if !strings.Contains(prompt.History[0].Content, "Open the debate") {
		t.Fatalf("unexpected opening entry: %q", prompt.History[0].Content)
	}
}

func TestPersonaPromptIncludesJudgeSummary(t *testing.T) {
	b := testBuilder()

	recent := []colosseum.Message{
		{Speaker: "a", Role: colosseum.RoleAssistant, Content: "point"},
	}
	prompt := b.personaPrompt(testPersonas()[1], "topic", recent, "both sides agree on X", 120)

	last := prompt.History[len(prompt.History)-1]
	if last.Role != colosseum.RoleUser {
		t.Fatalf("summary entry should carry the user role, got %q", last.Role)
	}
	if !strings.Contains(last.Content, "both sides agree on X") {
		t.Fatalf("summary missing from window: %q", last.Content)
	}
	if !strings.Contains(last.Content, "Judge") {
		t.Fatalf("summary not attributed to the judge: %q", last.Content)
	}
}

func TestJudgePromptTranscript(t *testing.T) {
	b := testBuilder()
	judge := testJudge()

	recent := []colosseum.Message{
		{Speaker: "a", Role: colosseum.RoleAssistant, Content: "claim"},
		{Speaker: "judge", Role: colosseum.RoleAssistant, Content: "earlier summary"},
	}
	prompt := b.judgePrompt(judge, "topic", recent, 90)

	if len(prompt.History) != 1 {
		t.Fatalf("transcript should be one entry, got %d", len(prompt.History))
	}
	transcript := prompt.History[0].Content
	if !strings.Contains(transcript, "Alpha: claim") {
		t.Fatalf("transcript missing persona turn: %q", transcript)
	}
	if !strings.Contains(transcript, "Judge: earlier summary") {
		t.Fatalf("judge sentinel not resolved to display name: %q", transcript)
	}
	if prompt.MaxTokens != 90 {
		t.Fatalf("expected max tokens 90, got %d", prompt.MaxTokens)
	}
}

func TestDisplayNameFallsBackToKey(t *testing.T) {
	b := testBuilder()

	if got := b.displayName("ghost"); got != "ghost" {
		t.Fatalf("unknown speaker should fall back to its key, got %q", got)
	}
	if got := b.displayName(colosseum.SpeakerJudge); got != "Judge" {
		t.Fatalf("judge sentinel should resolve to judge name, got %q", got)
	}
}

func TestTopicsPromptAvoidsExisting(t *testing.T) {
	b := testBuilder()

	prompt := b.topicsPrompt(testJudge(), 3, []string{"old one", "old two"})

	if !strings.Contains(prompt.History[0].Content, "old one") {
		t.Fatalf("existing topics not listed for avoidance")
	}
	if prompt.MaxTokens != 180 {
		t.Fatalf("expected budget scaled by count, got %d", prompt.MaxTokens)
	}
}
