// Package config loads environment settings and the YAML catalogs
// (personas, models, topics) the orchestrator starts from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/colosseum"
)

// Config holds all environment-driven settings with their defaults.
type Config struct {
	DatabaseURL string

	GroqAPIKey   string
	GeminiAPIKey string

	TelegramBotTokens  []string
	TelegramJudgeToken string

	HTTPAddr  string
	ConfigDir string

	CadenceSeconds      int
	MaxTokens           int
	ContextTurns        int
	MaxRounds           int
	JudgeEveryRounds    int
	JudgeMaxTokens      int
	TurnFailurePolicy   string
	TopicRotationPolicy string
	JudgeRotation       bool

	DailyTime       string
	TZOffsetMinutes int
	DailyChatID     int64
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getInt64Env(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

// Load reads environment variables (and an optional .env file) and builds
// the config with defaults matching the debate cadence knobs.
func Load() *Config {
	// .env is optional; missing is fine.
	godotenv.Load()

	var tokens []string
	for _, t := range strings.Split(os.Getenv("TELEGRAM_BOT_TOKENS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, t)
		}
	}

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),

		TelegramBotTokens:  tokens,
		TelegramJudgeToken: os.Getenv("TELEGRAM_JUDGE_TOKEN"),

		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		ConfigDir: getEnv("CONFIG_DIR", "config"),

		CadenceSeconds:      getIntEnv("DEBATE_CADENCE_SECONDS", 120),
		MaxTokens:           getIntEnv("BOT_MESSAGE_MAX_TOKENS", 120),
		ContextTurns:        getIntEnv("BOT_CONTEXT_TURNS", 4),
		MaxRounds:           getIntEnv("DEBATE_MAX_ROUNDS", 3),
		JudgeEveryRounds:    getIntEnv("JUDGE_SUMMARY_EVERY_ROUNDS", 2),
		JudgeMaxTokens:      getIntEnv("JUDGE_SUMMARY_MAX_TOKENS", 120),
		TurnFailurePolicy:   getEnv("TURN_FAILURE_POLICY", colosseum.FailurePolicyRetry),
		TopicRotationPolicy: getEnv("TOPIC_ROTATION_POLICY", colosseum.RotationWrap),
		JudgeRotation:       getBoolEnv("JUDGE_TRIGGERS_ROTATION", false),

		DailyTime:       getEnv("DAILY_ROTATION_TIME", "09:00"),
		TZOffsetMinutes: getIntEnv("TZ_OFFSET_MINUTES", 480),
		DailyChatID:     getInt64Env("DAILY_CHAT_ID", 0),
	}
}

// Validate checks the settings that must be coherent before any session can
// start.
func (c *Config) Validate() error {
	switch c.TurnFailurePolicy {
	case colosseum.FailurePolicyRetry, colosseum.FailurePolicySkip:
	default:
		return fmt.Errorf("%w: unknown turn failure policy %q", colosseum.ErrInvalidConfig, c.TurnFailurePolicy)
	}

	switch c.TopicRotationPolicy {
	case colosseum.RotationWrap, colosseum.RotationHalt:
	default:
		return fmt.Errorf("%w: unknown topic rotation policy %q", colosseum.ErrInvalidConfig, c.TopicRotationPolicy)
	}

	if c.CadenceSeconds <= 0 {
		return fmt.Errorf("%w: cadence must be positive", colosseum.ErrInvalidConfig)
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("%w: max rounds must be positive", colosseum.ErrInvalidConfig)
	}
	if _, _, err := ParseDailyTime(c.DailyTime); err != nil {
		return err
	}

	return nil
}

// ParseDailyTime parses an HH:MM clock string.
func ParseDailyTime(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: daily time %q is not HH:MM", colosseum.ErrInvalidConfig, s)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: daily time %q is not HH:MM", colosseum.ErrInvalidConfig, s)
	}
	return hour, minute, nil
}

// Catalog is the static input data a session starts from: personas with
// resolved models, the judge persona, and the initial topic list.
type Catalog struct {
	Personas  []colosseum.Persona
	TurnOrder []string
	Judge     colosseum.Persona
	Topics    []colosseum.Topic
}

// PersonaByKey looks up a persona in the catalog.
func (c *Catalog) PersonaByKey(key string) (colosseum.Persona, bool) {
	for _, p := range c.Personas {
		if p.Key == key {
			return p, true
		}
	}
	return colosseum.Persona{}, false
}

type personasFile struct {
	Personas []struct {
		Key          string  `yaml:"key"`
		Name         string  `yaml:"name"`
		SystemPrompt string  `yaml:"system_prompt"`
		Temperature  float64 `yaml:"temperature"`
		Provider     string  `yaml:"provider"`
	} `yaml:"personas"`
}

type modelsFile struct {
	Models map[string]string `yaml:"models"`
	Judge  struct {
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
	} `yaml:"judge"`
}

type topicsFile struct {
	Topics []struct {
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		Tags        []string `yaml:"tags"`
	} `yaml:"topics"`
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", colosseum.ErrInvalidConfig, path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parse %s: %v", colosseum.ErrInvalidConfig, path, err)
	}
	return nil
}

// LoadCatalog reads personas.yaml, models.yaml, and topics.yaml from dir,
// resolves persona model assignments, and validates the result. Any missing
// or inconsistent reference fails here, before a session exists.
func LoadCatalog(dir string) (*Catalog, error) {
	var personas personasFile
	if err := readYAML(filepath.Join(dir, "personas.yaml"), &personas); err != nil {
		return nil, err
	}

	var models modelsFile
	if err := readYAML(filepath.Join(dir, "models.yaml"), &models); err != nil {
		return nil, err
	}

	var topics topicsFile
	if err := readYAML(filepath.Join(dir, "topics.yaml"), &topics); err != nil {
		return nil, err
	}

	catalog := &Catalog{}

	for _, p := range personas.Personas {
		if p.Key == "" || p.Name == "" || p.SystemPrompt == "" {
			return nil, fmt.Errorf("%w: persona %q needs key, name, and system_prompt", colosseum.ErrInvalidConfig, p.Key)
		}
		if p.Key == colosseum.SpeakerJudge {
			return nil, fmt.Errorf("%w: persona key %q is reserved", colosseum.ErrInvalidConfig, p.Key)
		}

		model, ok := models.Models[p.Key]
		if !ok || model == "" {
			return nil, fmt.Errorf("%w: no model mapped for persona %q", colosseum.ErrInvalidConfig, p.Key)
		}

		provider := p.Provider
		if provider == "" {
			provider = "groq"
		}
		temperature := p.Temperature
		if temperature == 0 {
			temperature = 0.6
		}

		catalog.Personas = append(catalog.Personas, colosseum.Persona{
			Key:          p.Key,
			Name:         p.Name,
			SystemPrompt: p.SystemPrompt,
			Temperature:  temperature,
			Provider:     provider,
			Model:        model,
		})
		catalog.TurnOrder = append(catalog.TurnOrder, p.Key)
	}

	if len(catalog.Personas) == 0 {
		return nil, fmt.Errorf("%w: no personas configured", colosseum.ErrInvalidConfig)
	}

	judgeProvider := models.Judge.Provider
	if judgeProvider == "" {
		judgeProvider = "gemini"
	}
	if models.Judge.Model == "" {
		return nil, fmt.Errorf("%w: no judge model configured", colosseum.ErrInvalidConfig)
	}
	catalog.Judge = colosseum.Persona{
		Key:          colosseum.SpeakerJudge,
		Name:         "Judge",
		SystemPrompt: "You are the impartial judge of a debate. Summarize the strongest points made so far in 3-5 concise bullet points.",
		Provider:     judgeProvider,
		Model:        models.Judge.Model,
	}

	for _, t := range topics.Topics {
		if t.Title == "" {
			continue
		}
		catalog.Topics = append(catalog.Topics, colosseum.Topic{
			Title:       t.Title,
			Description: t.Description,
			Tags:        t.Tags,
		})
	}
	if len(catalog.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics configured", colosseum.ErrInvalidConfig)
	}

	return catalog, nil
}
