package debate

import (
	"fmt"
	"strings"

	"github.com/meikuraledutech/colosseum"
)

// styleDirective keeps persona turns short and chat-shaped.
const styleDirective = "Style: concise, 3-5 bullet points. Do not run long."

// promptBuilder assembles the bounded context window handed to each
// generation call. Deterministic given the same session state and window
// size.
type promptBuilder struct {
	personas  map[string]colosseum.Persona
	judgeName string
}

func newPromptBuilder(personas []colosseum.Persona, judge colosseum.Persona) *promptBuilder {
	byKey := make(map[string]colosseum.Persona, len(personas))
	for _, p := range personas {
		byKey[p.Key] = p
	}
	return &promptBuilder{personas: byKey, judgeName: judge.Name}
}

// displayName resolves a speaker key to its display name; unknown keys fall
// back to the key itself.
func (b *promptBuilder) displayName(speaker string) string {
	if speaker == colosseum.SpeakerJudge {
		return b.judgeName
	}
	if p, ok := b.personas[speaker]; ok {
		return p.Name
	}
	return speaker
}

// personaPrompt builds the window for a regular persona turn: the persona's
// system prompt plus topic framing first, then the most recent messages of
// this session only, oldest first, each keeping its original role, and the
// latest judge summary (when present) as a trailing user entry.
func (b *promptBuilder) personaPrompt(persona colosseum.Persona, topic string, recent []colosseum.Message, judgeSummary string, maxTokens int) colosseum.Prompt {
	var sys strings.Builder
	sys.WriteString(persona.SystemPrompt)
	sys.WriteString("\n")
	sys.WriteString(styleDirective)
	sys.WriteString("\nTopic: ")
	sys.WriteString(topic)

	history := make([]colosseum.PromptEntry, 0, len(recent)+1)
	for _, msg := range recent {
		history = append(history, colosseum.PromptEntry{
			Role:    msg.Role,
			Content: fmt.Sprintf("%s: %s", b.displayName(msg.Speaker), msg.Content),
		})
	}
	if judgeSummary != "" {
		history = append(history, colosseum.PromptEntry{
			Role:    colosseum.RoleUser,
			Content: fmt.Sprintf("%s's summary: %s", b.judgeName, judgeSummary),
		})
	}
	if len(history) == 0 {
		history = append(history, colosseum.PromptEntry{
			Role:    colosseum.RoleUser,
			Content: "Open the debate with your position.",
		})
	}

	return colosseum.Prompt{
		Model:       persona.Model,
		System:      sys.String(),
		History:     history,
		Temperature: persona.Temperature,
		MaxTokens:   maxTokens,
	}
}

// judgePrompt builds the summarization request: the judge's own system
// prompt plus topic framing, with the recent turns concatenated as one user
// entry.
func (b *promptBuilder) judgePrompt(judge colosseum.Persona, topic string, recent []colosseum.Message, maxTokens int) colosseum.Prompt {
	var transcript strings.Builder
	for _, msg := range recent {
		fmt.Fprintf(&transcript, "%s: %s\n", b.displayName(msg.Speaker), msg.Content)
	}

	return colosseum.Prompt{
		Model:  judge.Model,
		System: judge.SystemPrompt + "\nTopic: " + topic,
		History: []colosseum.PromptEntry{{
			Role:    colosseum.RoleUser,
			Content: transcript.String(),
		}},
		Temperature: judge.Temperature,
		MaxTokens:   maxTokens,
	}
}

// topicsPrompt asks the judge role for fresh debate topics, one per line.
func (b *promptBuilder) topicsPrompt(judge colosseum.Persona, n int, existing []string) colosseum.Prompt {
	var req strings.Builder
	fmt.Fprintf(&req, "Propose %d fresh debate topics, one per line, plain titles only.", n)
	if len(existing) > 0 {
		req.WriteString(" Avoid these existing topics:\n")
		req.WriteString(strings.Join(existing, "\n"))
	}

	return colosseum.Prompt{
		Model:  judge.Model,
		System: judge.SystemPrompt,
		History: []colosseum.PromptEntry{{
			Role:    colosseum.RoleUser,
			Content: req.String(),
		}},
		MaxTokens: 60 * n,
	}
}
