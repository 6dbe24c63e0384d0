package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"kitchenledger/internal/api"
	"kitchenledger/internal/backend"
	"kitchenledger/internal/cli"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/session"
	"kitchenledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker, os.Stdout)
	log := logger.Slog()

	if err := cfg.ValidateExport(); err != nil {
		log.Error("Export configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	log.Info("Starting kitchen-export", "export_backend", cfg.ExportBackend)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		log.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	factory := backend.NewFactory(log)

	exp, err := factory.CreateExporter(context.Background(), bc)
	if err != nil {
		log.Error("Failed to initialize exporter", applog.FieldError, err, "backend", cfg.ExportBackend)
		os.Exit(1)
	}

	amqpClient, err := factory.CreateEventClient(context.Background(), bc)
	if err != nil {
		log.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	// Reconciliation reads the ledger with the session the dashboard stored.
	store, closeSession, err := cli.OpenSession(context.Background(), cfg, log)
	if err != nil {
		log.Error("Failed to open session store", applog.FieldError, err)
		os.Exit(1)
	}
	client := api.NewClient(cfg.APIURL, store,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(logger.WithComponent(applog.ComponentAPI).Slog()),
	)

	exportWorker := worker.NewExportWorker(exp.Exporter, log)

	ctx, done := cli.GracefulShutdown(log, 30*time.Second, func() {
		if err := amqpClient.Close(); err != nil {
			log.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
		if exp.Cleanup != nil {
			if err := exp.Cleanup(); err != nil {
				log.Warn("Failed to close exporter", applog.FieldError, err)
			}
		}
		if err := closeSession(); err != nil {
			log.Warn("Failed to close session store", applog.FieldError, err)
		}
	})

	reconcile(ctx, log, exportWorker, store, client)

	go func() {
		if err := amqpClient.Consume(ctx, exportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	if cfg.ReconcileInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ReconcileInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					reconcile(ctx, log, exportWorker, store, client)
				}
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	log.Info("Export worker stopped")
}

// reconcile runs one pass when a session is available. Failures are logged;
// the next tick or event retries.
func reconcile(ctx context.Context, log *slog.Logger, w *worker.ExportWorker, store *session.Store, src worker.TransactionSource) {
	if !store.IsAuthenticated(ctx) {
		log.Info("Skipping reconcile, no stored session")
		return
	}
	if _, err := w.Reconcile(ctx, src); err != nil {
		log.Error("Reconcile failed",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorType(err))
	}
}
