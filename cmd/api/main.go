// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Tingtong comment API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire the social services and HTTP handlers.
//  7. Start the reconciliation job and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/polutek/tingtong/internal/api"
	"github.com/polutek/tingtong/internal/platform/config"
	"github.com/polutek/tingtong/internal/platform/constants"
	"github.com/polutek/tingtong/internal/platform/metrics"
	"github.com/polutek/tingtong/internal/platform/middleware"
	"github.com/polutek/tingtong/internal/platform/migration"
	pgstore "github.com/polutek/tingtong/internal/platform/postgres"
	"github.com/polutek/tingtong/internal/platform/ratelimit"
	redisstore "github.com/polutek/tingtong/internal/platform/redis"
	"github.com/polutek/tingtong/internal/platform/sec"
	"github.com/polutek/tingtong/internal/social/comment"
	"github.com/polutek/tingtong/internal/social/notification"
	"github.com/polutek/tingtong/internal/social/reconcile"
	"github.com/polutek/tingtong/internal/social/vote"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Tingtong] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context of the process. Request contexts derive from it, so
	// cancelling it after Shutdown ends the hijacked WebSocket streams.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, constants.StartupTimeout)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Verification ─────────────────────────────────────────────
	// The API only verifies; tokens are minted by the identity service.
	tokens, err := sec.NewTokenService("", cfg.JWTPubKeyPath, cfg.JWTIssuer)
	must(log, err, "initialize jwt service")
	verifier := sec.NewCachedVerifier(tokens, cfg.TokenCacheSize)

	// ── 7. Metrics ────────────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	// One per-user budget shared by comment creation and voting.
	guard := ratelimit.NewGuard(ratelimit.NewRedisLimiter(rdb, cfg.ActionRateLimit, cfg.ActionRateWindow), log)

	notificationService := notification.NewService(notification.NewPostgresRepository(pool), log)
	ledger := vote.NewLedger(vote.NewPostgresRepository(pool), guard, m, log)
	commentService := comment.NewService(comment.NewPostgresRepository(pool), log,
		comment.WithVoteLookup(ledger),
		comment.WithReplyNotifier(notificationService),
		comment.WithBroker(comment.NewRedisBroker(rdb, log)),
		comment.WithGuard(guard),
		comment.WithMetrics(m),
	)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Comment: comment.NewHandler(commentService, func(origin string) bool {
			return middleware.OriginAllowed(cfg, origin)
		}),
		Vote:         vote.NewHandler(ledger),
		Notification: notification.NewHandler(notificationService),
	}

	// ── 9. Reconciliation ─────────────────────────────────────────────────
	if cfg.ReconcileEnabled {
		job, err := reconcile.NewJob(reconcile.NewPostgresRepairer(pool), cfg.ReconcileCron, m, log)
		must(log, err, "schedule reconciliation")
		job.Start(rootCtx)
	}

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, verifier, m, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)

	// Streams and the reconciliation loop stop with the root context.
	rootCancel()

	if shutdownErr != nil {
		log.Error("shutdown error", slog.Any("error", shutdownErr))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "tingtong"))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
