// Package cli provides common initialization shared by cmd/kitchen,
// cmd/kitchen-web and cmd/kitchen-export.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kitchenledger/internal/amqp"
	"kitchenledger/internal/backend"
	"kitchenledger/internal/config"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/session"
)

// SetupLogger builds the structured logger from the configured level and
// format and installs it as the process default.
func SetupLogger(cfg *config.Config, component string, out io.Writer) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Level = applog.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component
	if out != nil {
		lc.Output = out
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Validation failures are written to stderr and the process exits.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenSession builds the persistent session store selected by the config.
// The returned cleanup closes the underlying KV and is never nil.
func OpenSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session.Store, backend.CleanupFunc, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger).CreateSessionKV(ctx, bc)
	if err != nil {
		return nil, nil, err
	}
	cleanup := res.Cleanup
	if cleanup == nil {
		cleanup = func() error { return nil }
	}
	return session.NewStore(res.KV, logger), cleanup, nil
}

// OpenEvents connects the ledger event publisher when AMQP is configured.
// Events are optional for the dashboard, so a broker that cannot be reached
// is logged and nil is returned. Close is a no-op on a nil client.
func OpenEvents(ctx context.Context, cfg *config.Config, logger *slog.Logger) *amqp.Client {
	if !cfg.EventsEnabled() {
		return nil
	}
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Warn("Ledger events disabled", "error", err)
		return nil
	}
	client, err := backend.NewFactory(logger).CreateEventClient(ctx, bc)
	if err != nil {
		logger.Warn("Ledger events disabled, broker unavailable", "error", err)
		return nil
	}
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
