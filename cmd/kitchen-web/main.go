package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"kitchenledger/internal/analytics"
	"kitchenledger/internal/api"
	"kitchenledger/internal/auth"
	"kitchenledger/internal/cache"
	"kitchenledger/internal/cli"
	apphttp "kitchenledger/internal/http"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/middleware/ratelimit"
	"kitchenledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp, os.Stdout)
	log := logger.Slog()

	log.Info("Starting kitchen-web", "api_url", cfg.APIURL, "session_backend", cfg.SessionBackend)

	store, closeSession, err := cli.OpenSession(context.Background(), cfg, log)
	if err != nil {
		log.Error("Failed to open session store", applog.FieldError, err, "backend", cfg.SessionBackend)
		os.Exit(1)
	}

	client := api.NewClient(cfg.APIURL, store,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(logger.WithComponent(applog.ComponentAPI).Slog()),
	)

	controller := auth.NewController(client, store, logger.WithComponent(applog.ComponentAuth).Slog())
	st, err := controller.Start(context.Background())
	if err != nil {
		log.Error("Failed to restore session", applog.FieldError, err)
		os.Exit(1)
	}
	log.Info("Session restored", "phase", st.Phase)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	memo := analytics.NewMemo(16, 10*time.Minute)
	caches.Register(memo.Cache())

	opts := []services.Option{
		services.WithMemo(memo),
		services.WithLogger(log),
	}
	events := cli.OpenEvents(context.Background(), cfg, log)
	if events != nil {
		opts = append(opts, services.WithPublisher(events))
	}
	dash := services.NewDashboard(client, opts...)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:      ":" + cfg.Port,
		Logger:    logger,
		Auth:      controller,
		Dashboard: dash,
		Profiles:  client,
		Caches:    caches,
		RateLimit: ratelimit.DefaultConfig(),
	})
	if err != nil {
		log.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}
	caches.StartCleanup(5 * time.Minute)

	ctx, done := cli.GracefulShutdown(log, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := events.Close(); err != nil {
			log.Warn("Failed to close AMQP client", applog.FieldError, err)
		}
		if err := closeSession(); err != nil {
			log.Warn("Failed to close session store", applog.FieldError, err)
		}
	})

	go func() {
		log.Info("Listening", "addr", srv.Addr())
		if err := srv.ListenAndServe(); err != nil {
			log.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	log.Info("Server stopped gracefully")
}
