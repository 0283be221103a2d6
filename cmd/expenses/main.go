package main

import (
	"context"
	"os"
	"time"

	"expenses/internal/cli"
	applog "expenses/internal/log"
)

func main() {
	bootstrap := cli.BootstrapLogger()
	cli.LoadEnvFile(bootstrap)
	cfg := cli.LoadAndValidateConfig(bootstrap)

	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		bootstrap.Error("Invalid logging configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}

	app, err := cli.BuildApp(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to start", applog.FieldError, err.Error(), applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, app.Shutdown)

	logger.Info("Starting expenses server",
		"addr", cfg.Addr(),
		applog.FieldBackend, cfg.DataBackend,
		"auth_disabled", cfg.AuthDisabled)
	if err := app.Serve(); err != nil {
		logger.Error("Server error", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
