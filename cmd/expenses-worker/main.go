package main

import (
	"context"
	"os"
	"time"

	"expenses/internal/amqp"
	"expenses/internal/backend"
	"expenses/internal/cli"
	applog "expenses/internal/log"
	"expenses/internal/worker"
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
	logger = logger.WithComponent(applog.ComponentWorker)

	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Mirror configuration validation failed",
			applog.FieldError, err.Error(),
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	logger.Info("Starting expenses-worker",
		applog.FieldBackend, cfg.DataBackend,
		"mirror", cfg.MirrorBackend,
		"interval", cfg.SyncInterval)

	ctx := context.Background()
	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize primary ledger", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer res.Cleanup()

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger.Logger).CreateMirror(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize mirror", applog.FieldError, err.Error())
		os.Exit(1)
	}

	// Without a broker the worker only syncs on its timer.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, falling back to periodic sync", applog.FieldError, err.Error())
		} else {
			defer client.Close()
			consumer = client
		}
	} else {
		logger.Info("AMQP disabled, syncing on the interval only")
	}

	w := worker.NewMirrorWorker(res.Store, mirror, cfg.SyncInterval)
	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := w.Run(runCtx, consumer); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
	last, syncs := w.Stats()
	logger.Info("Worker shutdown complete", "syncs", syncs, "last_sync", last)
}
