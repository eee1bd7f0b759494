// Command colosseum runs the multi-persona debate orchestrator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/colosseum"
	"github.com/meikuraledutech/colosseum/config"
	"github.com/meikuraledutech/colosseum/debate"
	"github.com/meikuraledutech/colosseum/gemini"
	"github.com/meikuraledutech/colosseum/groq"
	"github.com/meikuraledutech/colosseum/httpapi"
	"github.com/meikuraledutech/colosseum/memory"
	"github.com/meikuraledutech/colosseum/observability"
	"github.com/meikuraledutech/colosseum/postgres"
	"github.com/meikuraledutech/colosseum/telegram"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "colosseum",
	Short: "Multi-persona debate orchestrator",
	Long: `colosseum orchestrates round-robin debates between scripted AI
personas in a group chat, refereed by a judge agent that periodically
summarizes and rotates topics.`,
}

var (
	rollbackFlag bool
	statusFlag   bool
)

func init() {
	initDBCmd.Flags().BoolVar(&rollbackFlag, "rollback", false, "Roll back the last applied migration")
	initDBCmd.Flags().BoolVar(&statusFlag, "status", false, "Show migration status without applying")

	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(runCmd)
}

// ============================================================================
// CHECK-CONFIG
// ============================================================================

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate environment and YAML catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()

		set := func(v string) string {
			if v == "" {
				return "missing"
			}
			return "set"
		}

		fmt.Fprintln(w, "== Config Check ==")
		fmt.Fprintf(w, "GROQ_API_KEY:\t%s\n", set(cfg.GroqAPIKey))
		fmt.Fprintf(w, "GEMINI_API_KEY:\t%s\n", set(cfg.GeminiAPIKey))
		fmt.Fprintf(w, "DATABASE_URL:\t%s\n", set(cfg.DatabaseURL))
		fmt.Fprintf(w, "TELEGRAM_BOT_TOKENS:\t%d provided\n", len(cfg.TelegramBotTokens))
		fmt.Fprintf(w, "TELEGRAM_JUDGE_TOKEN:\t%s\n", set(cfg.TelegramJudgeToken))

		if err := cfg.Validate(); err != nil {
			return err
		}

		catalog, err := config.LoadCatalog(cfg.ConfigDir)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "Personas:\t%d\n", len(catalog.Personas))
		for _, p := range catalog.Personas {
			fmt.Fprintf(w, "  - %s:\t%s/%s\n", p.Key, p.Provider, p.Model)
		}
		fmt.Fprintf(w, "Judge:\t%s/%s\n", catalog.Judge.Provider, catalog.Judge.Model)
		fmt.Fprintf(w, "Topics:\t%d\n", len(catalog.Topics))

		if len(cfg.TelegramBotTokens) > 0 && len(cfg.TelegramBotTokens) < len(catalog.Personas) {
			fmt.Fprintf(w, "WARNING:\t%d personas but only %d bot tokens\n", len(catalog.Personas), len(cfg.TelegramBotTokens))
		}

		return nil
	},
}

// ============================================================================
// INIT-DB
// ============================================================================

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is not set", colosseum.ErrInvalidConfig)
		}

		ctx := cmd.Context()
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()

		store := postgres.New(pool)

		switch {
		case statusFlag:
			records, err := store.Status(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer w.Flush()
			for _, rec := range records {
				state := "pending"
				if rec.Applied {
					state = "applied " + rec.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\n", rec.Name, state)
			}
			return nil
		case rollbackFlag:
			if err := store.Rollback(ctx); err != nil {
				return err
			}
			fmt.Println("Last migration rolled back.")
			return nil
		default:
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			fmt.Println("Database migrations applied.")
			return nil
		}
	},
}

// ============================================================================
// RUN
// ============================================================================

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the orchestrator and admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	log := observability.Logger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	catalog, err := config.LoadCatalog(cfg.ConfigDir)
	if err != nil {
		return err
	}

	// Storage: postgres when configured, otherwise degrade to memory with a
	// warning. Losing records must never stop the debate.
	var store colosseum.Store = memory.New()
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, running without persistence")
	} else {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn("database unavailable, running without persistence", "error", err)
		} else {
			pg := postgres.New(pool)
			if err := pg.CreateSchema(ctx); err != nil {
				return err
			}
			store = pg
			defer pool.Close()
		}
	}

	// Seed the topic rotator: YAML catalog first, then any runtime-added
	// topics persisted earlier.
	topics := catalog.Topics
	if stored, err := store.ListTopics(ctx); err == nil {
		known := make(map[string]bool, len(topics))
		for _, t := range topics {
			known[t.Title] = true
		}
		for _, t := range stored {
			if !known[t.Title] {
				topics = append(topics, t)
			}
		}
	}
	rotator := debate.NewRotator(topics, cfg.TopicRotationPolicy)

	gateway := debate.NewGateway(map[string]colosseum.Provider{
		"groq":   groq.New(cfg.GroqAPIKey),
		"gemini": gemini.New(cfg.GeminiAPIKey),
	})

	courier := buildCourier(cfg, catalog, log)

	orc, err := debate.New(store, gateway, courier, rotator,
		catalog.Personas, catalog.Judge,
		debate.Options{
			Cadence:          time.Duration(cfg.CadenceSeconds) * time.Second,
			MaxTokens:        cfg.MaxTokens,
			ContextTurns:     cfg.ContextTurns,
			MaxRounds:        cfg.MaxRounds,
			JudgeEveryRounds: cfg.JudgeEveryRounds,
			JudgeMaxTokens:   cfg.JudgeMaxTokens,
			FailurePolicy:    cfg.TurnFailurePolicy,
			JudgeRotation:    cfg.JudgeRotation,
		}, observability.WithFields("component", "orchestrator"))
	if err != nil {
		return err
	}

	// Sessions that were active when the previous process exited would
	// otherwise sit in the store blocking their chat until stopped by hand.
	if resumed, err := orc.ResumeSessions(ctx); err != nil {
		log.Warn("resume sessions", "error", err)
	} else if resumed > 0 {
		log.Info("resumed active sessions", "count", resumed)
	}

	hour, minute, err := config.ParseDailyTime(cfg.DailyTime)
	if err != nil {
		return err
	}
	daily := debate.NewDailyScheduler(orc, hour, minute, cfg.TZOffsetMinutes, observability.WithFields("component", "daily"))
	if cfg.DailyChatID != 0 {
		daily.Enable(cfg.DailyChatID)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(fiberlogger.New())
	httpapi.NewHandler(orc, daily).Register(app)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.HTTPAddr)
	}()
	log.Info("admin API listening", "addr", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	daily.Disable()
	orc.Shutdown(shutdownCtx)
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	return nil
}

// buildCourier wires the Telegram courier when the tokens cover every
// persona plus the judge; otherwise deliveries go to the log.
func buildCourier(cfg *config.Config, catalog *config.Catalog, log *slog.Logger) colosseum.Courier {
	if len(cfg.TelegramBotTokens) >= len(catalog.Personas) && cfg.TelegramJudgeToken != "" {
		tokens := make(map[string]string, len(catalog.Personas)+1)
		for i, p := range catalog.Personas {
			tokens[p.Key] = cfg.TelegramBotTokens[i]
		}
		tokens[colosseum.SpeakerJudge] = cfg.TelegramJudgeToken
		return telegram.New(tokens)
	}

	log.Warn("telegram tokens incomplete, delivering to log only")
	return debate.NewLogCourier(log)
}
