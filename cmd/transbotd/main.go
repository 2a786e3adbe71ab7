// cmd/transbotd/main.go
// Package main implements the entry point for the bot daemon.
// It initializes all components and starts the chat update loop.
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

	"github.com/red-avtovo/r-trans-bot/internal/bot"
	"github.com/red-avtovo/r-trans-bot/internal/config"
	"github.com/red-avtovo/r-trans-bot/internal/event"
	"github.com/red-avtovo/r-trans-bot/internal/metrics"
	"github.com/red-avtovo/r-trans-bot/internal/scraper"
	"github.com/red-avtovo/r-trans-bot/internal/server"
	"github.com/red-avtovo/r-trans-bot/internal/storage"
	"github.com/red-avtovo/r-trans-bot/internal/telegram"
	"github.com/red-avtovo/r-trans-bot/internal/telemetry"
	"github.com/red-avtovo/r-trans-bot/internal/vault"
)

// main initializes all components, starts the update loop, and handles
// graceful shutdown.
func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging for the application
	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// A misconfigured vault key must fail before the first credential write.
	if err := vault.SelfTest(cfg.Secret); err != nil {
		logger.Error("credential vault self test failed", "error", err)
		os.Exit(1)
	}

	// Initialize OpenTelemetry
	_, err = telemetry.InitTracer("trans-bot")
	if err != nil {
		logger.Error("failed to initialize OpenTelemetry tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.ShutdownTracer(ctx)
	}()

	// Initialize storage backend (PostgreSQL or in-memory)
	var store storage.Store
	if cfg.DatabaseDSN != "" {
		store, err = storage.NewPostgres(cfg.DatabaseDSN, cfg.Secret)
		if err != nil {
			logger.Error("failed to initialize postgres storage", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL is not set, using in-memory storage")
		store = storage.NewMemory(cfg.Secret)
	}

	// Initialize event publisher (NATS JetStream or no-op)
	pub := event.NewPublisher(cfg.NATSURL)
	defer pub.Close()

	m := metrics.NewMetrics()

	// Operational endpoints: health probes and metrics
	opsSrv := &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      server.NewMux(store),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ops endpoint starting", "addr", cfg.MetricsAddr)
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops endpoint failed", "error", err)
		}
	}()

	// Connect to the chat platform
	tg, err := telegram.New(cfg.Token)
	if err != nil {
		logger.Error("failed to connect to telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("bot starting", "username", tg.Username(), "env", cfg.Env)

	b := bot.New(store, tg, bot.Options{
		Resolver: scraper.NewClient(),
		Events:   pub,
		Metrics:  m,
		Logger:   logger,
	})

	// Run the update loop until a signal arrives. Run blocks; cancellation
	// stops the long poll and drains in-flight handlers.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		cancel()
	}()

	tg.Run(ctx, b.Route)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops endpoint shutdown failed", "error", err)
	}

	// Close PostgreSQL storage if used
	if postgresStore, ok := store.(interface{ Close() }); ok {
		postgresStore.Close()
	}

	logger.Info("bot exited")
}
