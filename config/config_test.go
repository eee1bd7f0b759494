package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/meikuraledutech/colosseum"
	"github.com/meikuraledutech/colosseum/config"
)

const personasYAML = `personas:
  - key: optimist
    name: Nova
    system_prompt: You are Nova.
    temperature: 0.7
  - key: skeptic
    name: Cassius
    system_prompt: You are Cassius.
    provider: gemini
`

const modelsYAML = `models:
  optimist: llama-3.3-70b-versatile
  skeptic: gemini-2.0-flash
judge:
  model: gemini-2.0-flash
`

const topicsYAML = `topics:
  - title: First topic
    description: d1
    tags: [one]
  - title: Second topic
`

func writeCatalog(t *testing.T, personas, models, topics string) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"personas.yaml": personas,
		"models.yaml":   models,
		"topics.yaml":   topics,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadCatalog(t *testing.T) {
	dir := writeCatalog(t, personasYAML, modelsYAML, topicsYAML)

	catalog, err := config.LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	if len(catalog.Personas) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(catalog.Personas))
	}

	optimist, ok := catalog.PersonaByKey("optimist")
	if !ok {
		t.Fatalf("optimist not found")
	}
	if optimist.Provider != "groq" {
		t.Fatalf("missing provider should default to groq, got %q", optimist.Provider)
	}
	if optimist.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("model not resolved: %q", optimist.Model)
	}
	if optimist.Temperature != 0.7 {
		t.Fatalf("temperature lost: %v", optimist.Temperature)
	}

	skeptic, _ := catalog.PersonaByKey("skeptic")
	if skeptic.Provider != "gemini" {
		t.Fatalf("explicit provider overridden: %q", skeptic.Provider)
	}
	if skeptic.Temperature != 0.6 {
		t.Fatalf("missing temperature should default to 0.6, got %v", skeptic.Temperature)
	}

	if got := catalog.TurnOrder; len(got) != 2 || got[0] != "optimist" || got[1] != "skeptic" {
		t.Fatalf("turn order must follow file order, got %v", got)
	}

	if catalog.Judge.Key != colosseum.SpeakerJudge {
		t.Fatalf("judge key wrong: %q", catalog.Judge.Key)
	}
	if catalog.Judge.Provider != "gemini" {
		t.Fatalf("judge provider should default to gemini, got %q", catalog.Judge.Provider)
	}

	if len(catalog.Topics) != 2 || catalog.Topics[0].Title != "First topic" {
		t.Fatalf("topics not loaded in order: %+v", catalog.Topics)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name     string
		personas string
		models   string
		topics   string
	}{
		{
			name: "missing model mapping",
			personas: `personas:
  - key: ghost
    name: Ghost
    system_prompt: x
`,
			models: modelsYAML,
			topics: topicsYAML,
		},
		{
			name: "reserved judge key",
			personas: `personas:
  - key: judge
    name: Impostor
    system_prompt: x
`,
			models: modelsYAML,
			topics: topicsYAML,
		},
		{
			name:     "no judge model",
			personas: personasYAML,
			models: `models:
  optimist: m1
  skeptic: m2
`,
			topics: topicsYAML,
		},
		{
			name:     "no topics",
			personas: personasYAML,
			models:   modelsYAML,
			topics:   "topics: []\n",
		},
		{
			name:     "persona missing name",
			personas: "personas:\n  - key: x\n    system_prompt: y\n",
			models:   modelsYAML,
			topics:   topicsYAML,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeCatalog(t, tc.personas, tc.models, tc.topics)
			if _, err := config.LoadCatalog(dir); !errors.Is(err, colosseum.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("DEBATE_CADENCE_SECONDS", "30")
	t.Setenv("TELEGRAM_BOT_TOKENS", "tok1, tok2 ,,tok3")
	t.Setenv("JUDGE_TRIGGERS_ROTATION", "true")

	cfg := config.Load()

	if cfg.CadenceSeconds != 30 {
		t.Fatalf("override lost, got %d", cfg.CadenceSeconds)
	}
	if cfg.MaxTokens != 120 || cfg.ContextTurns != 4 || cfg.MaxRounds != 3 {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if cfg.TurnFailurePolicy != colosseum.FailurePolicyRetry {
		t.Fatalf("default failure policy wrong: %q", cfg.TurnFailurePolicy)
	}
	if cfg.TopicRotationPolicy != colosseum.RotationWrap {
		t.Fatalf("default rotation policy wrong: %q", cfg.TopicRotationPolicy)
	}
	if len(cfg.TelegramBotTokens) != 3 || cfg.TelegramBotTokens[1] != "tok2" {
		t.Fatalf("token list not trimmed and split: %v", cfg.TelegramBotTokens)
	}
	if !cfg.JudgeRotation {
		t.Fatalf("bool env not parsed")
	}
	if cfg.DailyTime != "09:00" || cfg.TZOffsetMinutes != 480 {
		t.Fatalf("daily defaults wrong: %q %d", cfg.DailyTime, cfg.TZOffsetMinutes)
	}
}

func TestValidate(t *testing.T) {
	valid := config.Config{
		CadenceSeconds:      120,
		MaxRounds:           3,
		TurnFailurePolicy:   colosseum.FailurePolicyRetry,
		TopicRotationPolicy: colosseum.RotationWrap,
		DailyTime:           "09:00",
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"bad failure policy", func(c *config.Config) { c.TurnFailurePolicy = "panic" }},
		{"bad rotation policy", func(c *config.Config) { c.TopicRotationPolicy = "shuffle" }},
		{"zero cadence", func(c *config.Config) { c.CadenceSeconds = 0 }},
		{"zero max rounds", func(c *config.Config) { c.MaxRounds = 0 }},
		{"bad daily time", func(c *config.Config) { c.DailyTime = "25:99" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, colosseum.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestParseDailyTime(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"09:00", 9, 0, true},
		{"23:59", 23, 59, true},
		{"0:5", 0, 5, true},
		{"24:00", 0, 0, false},
		{"09:60", 0, 0, false},
		{"nine", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			hour, minute, err := config.ParseDailyTime(tc.in)
			if tc.ok {
				if err != nil {
					t.Fatalf("ParseDailyTime(%q) failed: %v", tc.in, err)
				}
				if hour != tc.hour || minute != tc.minute {
					t.Fatalf("ParseDailyTime(%q) = %d:%d", tc.in, hour, minute)
				}
				return
			}
			if !errors.Is(err, colosseum.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig for %q, got %v", tc.in, err)
			}
		})
	}
}
