package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"expenses/internal/auth"
	"expenses/internal/cache"
	"expenses/internal/config"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
)

// CacheSweepInterval is how often the janitor drops expired ledger snapshots.
const CacheSweepInterval = 5 * time.Minute

// App is a configured web server with the resources it owns.
type App struct {
	Server  *apphttp.Server
	janitor *cache.Janitor
	cleanup func() error
	logger  *applog.Logger
}

// BuildApp wires the backend, the login gate and the HTTP server for cfg.
func BuildApp(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*App, error) {
	res, err := InitBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	gate, err := auth.New(AuthConfig(cfg))
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:     cfg.Addr(),
		Service:  res.Service,
		Gate:     gate,
		Currency: cfg.Currency,
		Logger:   logger,
	})
	if err != nil {
		_ = res.Cleanup()
		return nil, err
	}

	janitor := cache.NewJanitor(logger.Logger.With(applog.FieldComponent, applog.ComponentCache))
	for _, c := range res.Caches {
		janitor.Register(c)
	}

	return &App{Server: srv, janitor: janitor, cleanup: res.Cleanup, logger: logger}, nil
}

// Serve starts the janitor and blocks in ListenAndServe. A graceful shutdown
// returns nil.
func (a *App) Serve() error {
	a.janitor.Start(CacheSweepInterval)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	return nil
}

// Shutdown drains the server, stops the janitor and closes the backend.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.Server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", applog.FieldError, err.Error())
	}
	a.janitor.Stop()
	if err := a.cleanup(); err != nil {
		a.logger.Error("Backend cleanup error", applog.FieldError, err.Error())
	}
}
