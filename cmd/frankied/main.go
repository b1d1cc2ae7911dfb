// Command frankied runs the Frankie task core: the orchestrator, its plugins
// and the admin REST/WebSocket API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/frankie-agent/frankie/internal/adapter/gitcli"
	apihttp "github.com/frankie-agent/frankie/internal/adapter/http"
	franknats "github.com/frankie-agent/frankie/internal/adapter/nats"
	"github.com/frankie-agent/frankie/internal/adapter/ollama"
	"github.com/frankie-agent/frankie/internal/adapter/otel"
	"github.com/frankie-agent/frankie/internal/adapter/postgres"
	"github.com/frankie-agent/frankie/internal/adapter/ristretto"
	"github.com/frankie-agent/frankie/internal/adapter/toolrunner"
	"github.com/frankie-agent/frankie/internal/adapter/ws"
	"github.com/frankie-agent/frankie/internal/config"
	"github.com/frankie-agent/frankie/internal/git"
	"github.com/frankie-agent/frankie/internal/logger"
	"github.com/frankie-agent/frankie/internal/middleware"
	"github.com/frankie-agent/frankie/internal/port/plugin"
	"github.com/frankie-agent/frankie/internal/resilience"
	"github.com/frankie-agent/frankie/internal/service"

	// Notifier factory registration.
	_ "github.com/frankie-agent/frankie/internal/adapter/discord"
	_ "github.com/frankie-agent/frankie/internal/adapter/email"
	_ "github.com/frankie-agent/frankie/internal/adapter/slack"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"workspace", cfg.Agent.WorkspacePath,
		"model", cfg.Ollama.Model,
	)

	ctx := context.Background()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Error("telemetry shutdown", "error", err)
		}
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("postgres ready")

	store := postgres.NewStore(pool)

	permCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer permCache.Close()

	// The event bus is optional: an empty URL runs the core standalone.
	var queue *franknats.Queue
	if cfg.NATS.URL != "" {
		queue, err = franknats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Close() }()
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	// --- LLM ---
	llmClient := ollama.NewClient(cfg.Ollama)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Side-effect runners ---
	// Reads share a pool; commits are serialized through their own limit-1
	// pool so two approved tasks can never interleave apply/commit.
	opsPool := git.NewPool(cfg.Agent.GitMaxConcurrent)
	commitPool := git.NewPool(1)
	committer := gitcli.NewCommitter(opsPool, commitPool)
	formatter := toolrunner.NewFormatter(cfg.Agent.FormatCommands)
	testRunner := toolrunner.NewTestRunner(cfg.Agent.TestCommand)

	// --- Services ---
	hub := ws.NewHub()
	permSvc := service.NewPermissionService(store, permCache, cfg.Cache.TTL)
	taskSvc := service.NewTaskService(store)

	registry := plugin.NewRegistry()
	registry.Register(service.NewCodeModifierPlugin(llmClient, permSvc, formatter, testRunner, committer,
		cfg.Agent.WorkspacePath, cfg.Agent.CommitPrefix))
	registry.Register(service.NewOdysseyPlugin(llmClient))
	registry.Register(service.NewGenealogyPlugin(llmClient, store))

	orch := service.NewOrchestrator(store, registry, cfg.Agent.HandlerTimeout)
	orch.SetHub(hub)
	orch.SetMetrics(metrics)
	orch.SetNotifier(service.NewNotificationService(cfg.Notifications))
	if queue != nil {
		orch.SetQueue(queue)
	}

	// --- HTTP ---
	handlers := &apihttp.Handlers{
		Orchestrator:  orch,
		Tasks:         taskSvc,
		Permissions:   permSvc,
		Registry:      registry,
		Committer:     committer,
		Hub:           hub,
		WorkspacePath: cfg.Agent.WorkspacePath,
	}

	r := chi.NewRouter()
	r.Use(apihttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(apihttp.Logger)
	r.Use(apihttp.SecurityHeaders)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	apihttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
