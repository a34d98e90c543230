package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"familysavings/internal/cli"
	applog "familysavings/internal/log"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays clean on stdout.
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.Bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start", applog.FieldError, err.Error())
		os.Exit(cli.ExitError)
	}

	code := cli.Run(ctx, app, os.Args[1:], os.Stdout, os.Stderr)
	if err := app.Close(); err != nil {
		logger.Warn("Cleanup failed", applog.FieldError, err.Error())
	}
	stop()
	os.Exit(code)
}
