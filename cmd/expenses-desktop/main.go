package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/browser"

	"expenses/internal/cli"
	applog "expenses/internal/log"
)

const readyTimeout = 15 * time.Second

func main() {
	bootstrap := cli.BootstrapLogger()
	cli.LoadEnvFile(bootstrap)

	// The launcher only listens on loopback, so the login gate stays off.
	os.Setenv("AUTH_DISABLED", "true")
	cfg := cli.LoadAndValidateConfig(bootstrap)
	cfg.Host = "127.0.0.1"

	logger, err := cli.SetupLogger(cfg, os.Stdout)
	if err != nil {
		bootstrap.Error("Invalid logging configuration", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger = logger.WithComponent(applog.ComponentDesktop)

	app, err := cli.BuildApp(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to start", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, app.Shutdown)

	serveErr := make(chan error, 1)
	go func() { serveErr <- app.Serve() }()

	root := "http://" + cfg.Addr() + "/"
	readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	err = waitHealthy(readyCtx, root+"healthz")
	cancel()
	if err != nil {
		logger.Error("Server did not become healthy", applog.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Opening browser", "url", root)
	if err := browser.OpenURL(root); err != nil {
		logger.Warn("Could not open a browser, visit the URL manually", "url", root, applog.FieldError, err.Error())
	}

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err.Error())
			os.Exit(1)
		}
	case <-ctx.Done():
	}
	cli.WaitForShutdown(ctx, done)
}

// waitHealthy polls url until it answers 200 or ctx ends.
func waitHealthy(ctx context.Context, url string) error {
	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}
