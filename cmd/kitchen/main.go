package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"kitchenledger/internal/api"
	"kitchenledger/internal/auth"
	"kitchenledger/internal/cli"
	applog "kitchenledger/internal/log"
	"kitchenledger/internal/services"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	// Logs go to stderr so command output stays pipeable.
	logger := cli.SetupLogger(cfg, applog.ComponentCLI, os.Stderr)
	log := logger.Slog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := cli.OpenSession(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Warn("Failed to close session store", applog.FieldError, err)
		}
	}()

	client := api.NewClient(cfg.APIURL, store,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(logger.WithComponent(applog.ComponentAPI).Slog()),
	)
	controller := auth.NewController(client, store, logger.WithComponent(applog.ComponentAuth).Slog())
	if _, err := controller.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	opts := []services.Option{services.WithLogger(log)}
	events := cli.OpenEvents(ctx, cfg, log)
	defer events.Close()
	if events != nil {
		opts = append(opts, services.WithPublisher(events))
	}

	a := &app{
		out:      os.Stdout,
		auth:     controller,
		dash:     services.NewDashboard(client, opts...),
		profiles: client,
	}
	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
