package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"familysavings/internal/cli"
	"familysavings/internal/devserver"
	applog "familysavings/internal/log"
	"familysavings/internal/memory"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout).WithComponent(applog.ComponentDevServer)
	cfg := cli.LoadAndValidateConfig(logger)

	store := memory.NewStore()
	if cfg.SeedFile != "" {
		if err := store.LoadFile(cfg.SeedFile); err != nil {
			logger.Error("Failed to load seed file", applog.FieldError, err.Error(), "path", cfg.SeedFile)
			os.Exit(1)
		}
		logger.Info("Seeded store", "path", cfg.SeedFile)
	}

	srv := devserver.New(store, logger, devserver.Config{
		Addr:                   ":" + cfg.DevServerPort,
		WriteRequestsPerMinute: cfg.DevServerWriteRate,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting savings dev server", "port", cfg.DevServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.DevServerPort)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
