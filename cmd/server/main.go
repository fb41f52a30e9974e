/*
main.go - Application entry point

PURPOSE:
  Starts the vacation ledger HTTP server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (.env, environment, flags)
  2. Initialize logging and i18n
  3. Open the store selected by DB_DRIVER
  4. Wire notifiers (websocket hub, webhook, SQS)
  5. Build the ledger, router and reconciliation scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the websocket hub and the database

EXAMPLES:
  ./server -db=":memory:"
  DB_DRIVER=postgres DATABASE_URL=postgres://... ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
*/
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

	"github.com/warp/vacation-ledger/api"
	"github.com/warp/vacation-ledger/config"
	"github.com/warp/vacation-ledger/i18n"
	"github.com/warp/vacation-ledger/notify"
	"github.com/warp/vacation-ledger/store/postgres"
	"github.com/warp/vacation-ledger/store/sqlite"
	"github.com/warp/vacation-ledger/vacation"
)

// backend is what both SQL stores provide.
type backend interface {
	vacation.TxStore
	vacation.Directory
	api.Pinger
	api.ProfileWriter
	Close() error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(cfg.DefaultLocale); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Notifiers
	hub := notify.NewHub(cfg.CORSOrigins...)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	sinks := notify.Multi{hub}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.WebhookURL))
		logger.Info("webhook notifications enabled")
	}
	if cfg.SQSQueueURL != "" {
		q, err := notify.NewSQSFromEnv(ctx, cfg.SQSQueueURL)
		if err != nil {
			return err
		}
		sinks = append(sinks, q)
		logger.Info("SQS notifications enabled", "queue", cfg.SQSQueueURL)
	}

	ledger := vacation.New(store, store,
		vacation.WithNotifier(sinks),
		vacation.WithDefaults(cfg.Totals()),
		vacation.WithLogger(logger),
	)

	handler := api.NewHandler(ledger, store)
	handler.Profiles = store

	router := api.NewRouter(handler, api.RouterOptions{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		JWTSecret:   []byte(cfg.JWTSecret),
		Events:      hub,
		Scenarios:   cfg.Scenarios,
	})

	scheduler := api.NewReconciliationScheduler(ledger, logger)
	scheduler.CheckInterval = cfg.ReconcileInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "db_driver", cfg.DBDriver, "identity", cfg.JWTSecret != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config) (backend, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.New(cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}
