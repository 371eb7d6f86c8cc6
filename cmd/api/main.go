// Package main provides the HTTP API server for the AI LifeTime Analyzer.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/lifetime-analyzer/internal/config"
	"github.com/jnst/lifetime-analyzer/internal/generation"
	"github.com/jnst/lifetime-analyzer/internal/lifecycle"
	"github.com/jnst/lifetime-analyzer/internal/logger"
	"github.com/jnst/lifetime-analyzer/internal/repository"
	"github.com/jnst/lifetime-analyzer/internal/server"
	"github.com/jnst/lifetime-analyzer/internal/service"
	"github.com/jnst/lifetime-analyzer/internal/session"
)

const (
	readTimeout     = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
	exitCode        = 1
)

func setupRecorder(ctx context.Context, cfg *config.Config) (lifecycle.Recorder, func(), error) {
	if !cfg.AuditEnabled {
		return nil, func() {}, nil
	}

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, nil, err
	}

	attemptRepo := repository.NewAttemptRepositoryImpl(dbPool)
	outboxRepo := repository.NewOutboxRepositoryImpl(dbPool)
	transactionMgr := repository.NewTransactionManagerImpl(dbPool)

	return service.NewAuditServiceImpl(attemptRepo, outboxRepo, transactionMgr), dbPool.Close, nil
}

func setupSessions(ctx context.Context, cfg *config.Config, recorder lifecycle.Recorder) *session.Manager {
	client := generation.NewClient(cfg.APIKey,
		generation.WithBaseURL(cfg.GenerationBaseURL),
		generation.WithModel(cfg.GenerationModel),
		generation.WithTimeout(cfg.GenerationTimeout),
	)

	return session.NewManager(func(id string) *lifecycle.Controller {
		return lifecycle.New(client,
			lifecycle.WithID(id),
			lifecycle.WithModel(client.Model()),
			lifecycle.WithRecorder(recorder),
			lifecycle.WithBaseContext(ctx),
			lifecycle.WithLogger(slog.Default().With(slog.String("session_id", id))),
		)
	}, cfg.SessionTTL)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	slog.SetDefault(logger.Setup(cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverCfg := server.Config{
		Model:          cfg.GenerationModel,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}

	var sessions *session.Manager

	if err := cfg.Validate(); err != nil {
		// The generation client is never built without a key.
		slog.Warn("configuration incomplete, serving configuration notice only", slog.String("error", err.Error()))
		serverCfg.ConfigErr = err
	} else {
		recorder, closeRecorder, err := setupRecorder(ctx, cfg)
		if err != nil {
			slog.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(exitCode)
		}
		defer closeRecorder()

		sessions = setupSessions(ctx, cfg, recorder)
		defer sessions.Close()

		go sessions.Run(ctx, cfg.SessionSweep)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(sessions, serverCfg),
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		slog.Info("starting API server",
			slog.String("service", "api"),
			slog.String("port", cfg.Port),
			slog.String("model", cfg.GenerationModel),
			slog.Bool("audit", cfg.AuditEnabled),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped")
}
