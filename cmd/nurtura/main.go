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

	nhttp "github.com/nurtura-ai/nurtura/internal/adapter/http"
	"github.com/nurtura-ai/nurtura/internal/adapter/litellm"
	nnats "github.com/nurtura-ai/nurtura/internal/adapter/nats"
	notel "github.com/nurtura-ai/nurtura/internal/adapter/otel"
	"github.com/nurtura-ai/nurtura/internal/adapter/postgres"
	"github.com/nurtura-ai/nurtura/internal/adapter/ristretto"
	"github.com/nurtura-ai/nurtura/internal/config"
	"github.com/nurtura-ai/nurtura/internal/logger"
	"github.com/nurtura-ai/nurtura/internal/resilience"
	"github.com/nurtura-ai/nurtura/internal/service"
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
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	// OpenTelemetry
	shutdownOtel, err := notel.Setup(ctx, cfg.OTLP, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// NATS
	queue, err := nnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Drain() }()

	// Profile cache
	profileCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer profileCache.Close()

	// Completion client behind a circuit breaker
	llmClient := litellm.NewClient(cfg.LLM)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	metrics, err := notel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---
	store := postgres.NewStore(pool)
	costs := service.NewCostService(store, cfg.Pricing)
	contexts := service.NewContextService(store, profileCache, cfg.Cache.TTL, cfg.Pipeline.HistoryTurns)
	processor := service.NewTaskProcessorService(store, queue, llmClient, costs, contexts, metrics, cfg.Pipeline)
	manager := service.NewAgentManagerService(store, queue, llmClient, contexts, cfg.Pipeline)
	insights := service.NewInsightService(store, queue)

	cancelWatch, err := processor.StartBudgetWatchSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("budget watch subscriber: %w", err)
	}
	defer cancelWatch()

	// --- HTTP ---
	handlers := &nhttp.Handlers{
		Processor: processor,
		Manager:   manager,
		Costs:     costs,
		Insights:  insights,
		Contexts:  contexts,
		DB:        pool,
		Queue:     queue,
	}

	r := chi.NewRouter()
	r.Use(nhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(nhttp.SecurityHeaders)
	r.Use(nhttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(2 * time.Minute))
	r.Use(notel.HTTPMiddleware(cfg.Logging.Service))

	nhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
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
