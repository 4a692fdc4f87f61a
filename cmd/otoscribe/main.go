// Command otoscribe is the main entry point for the otoscribe correction server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/otoscribe/otoscribe/internal/config"
	"github.com/otoscribe/otoscribe/internal/correct"
	"github.com/otoscribe/otoscribe/internal/dictionary"
	"github.com/otoscribe/otoscribe/internal/health"
	"github.com/otoscribe/otoscribe/internal/observe"
	"github.com/otoscribe/otoscribe/internal/resilience"
	"github.com/otoscribe/otoscribe/internal/server"
	"github.com/otoscribe/otoscribe/pkg/provider/llm"
	"github.com/otoscribe/otoscribe/pkg/provider/llm/anyllm"
	oaillm "github.com/otoscribe/otoscribe/pkg/provider/llm/openai"
	"github.com/otoscribe/otoscribe/pkg/provider/stt"
	"github.com/otoscribe/otoscribe/pkg/provider/stt/whisperapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "otoscribe: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "otoscribe: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("otoscribe starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Dictionary store ──────────────────────────────────────────────────────
	var (
		store    dictionary.Store
		checkers []health.Checker
	)
	if dsn := cfg.Dictionary.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to open postgres pool", "err", err)
			return 1
		}
		defer pool.Close()

		pgStore := dictionary.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			slog.Error("failed to migrate dictionary schema", "err", err)
			return 1
		}
		store = pgStore
		checkers = append(checkers, health.Database(pool))
		slog.Info("dictionary store ready", "backend", "postgres")
	} else {
		store = dictionary.NewMemStore()
		slog.Info("dictionary store ready", "backend", "memory")
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	llmProvider, err := buildLLM(cfg.Providers.LLM)
	if err != nil {
		slog.Error("failed to create llm provider", "name", cfg.Providers.LLM.Name, "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	var transcriber stt.Transcriber
	if name := cfg.Providers.STT.Name; name != "" {
		transcriber, err = buildSTT(cfg.Providers.STT)
		if err != nil {
			slog.Error("failed to create stt provider", "name", name, "err", err)
			return 1
		}
		slog.Info("provider created", "kind", "stt", "name", name, "model", cfg.Providers.STT.Model)
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	copts := []correct.Option{correct.WithMetrics(observe.DefaultMetrics())}
	if cfg.Correction.Temperature > 0 {
		copts = append(copts, correct.WithTemperature(cfg.Correction.Temperature))
	}
	if cfg.Correction.MaxTokens > 0 {
		copts = append(copts, correct.WithMaxTokens(cfg.Correction.MaxTokens))
	}
	if cfg.Correction.RetryAttempts > 0 || cfg.Correction.RetryDelay > 0 {
		copts = append(copts, correct.WithRetry(resilience.RetryConfig{
			MaxAttempts: cfg.Correction.RetryAttempts,
			Delay:       cfg.Correction.RetryDelay,
		}))
	}
	corrector := correct.NewCorrector(store, llmProvider, copts...)
	learner := correct.NewLearner(store)

	srv := server.New(server.Config{
		Corrector:      corrector,
		Learner:        learner,
		Store:          store,
		Transcriber:    transcriber,
		Health:         health.New(checkers...),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildLLM constructs the configured LLM provider. The "openai" name uses
// the native SDK client; every other name is routed through the any-llm-go
// multi-backend adapter.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "openai" {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// buildSTT constructs the configured speech-to-text provider.
func buildSTT(entry config.ProviderEntry) (stt.Transcriber, error) {
	return whisperapi.New(entry.APIKey, entry.Model)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
