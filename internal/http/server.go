// Package http serves the ledger pages and the JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"expenses/internal/auth"
	"expenses/internal/core"
	"expenses/internal/ledger"
	applog "expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	"expenses/internal/summary"
	appweb "expenses/web"
)

// ExpenseService is what the handlers need from the ledger.
type ExpenseService interface {
	List(ctx context.Context, f core.Filter) (core.Listing, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, d core.Draft) (core.Expense, error)
	Get(ctx context.Context, ref core.Ref) (core.Entry, error)
	Update(ctx context.Context, ref core.Ref, d core.Draft) (core.Expense, error)
	Delete(ctx context.Context, ref core.Ref) error
	Summary(ctx context.Context) (summary.Table, error)
	// Today is the date new expenses get when none is given.
	Today() string
	Export(ctx context.Context, w io.Writer) (ledger.Export, error)
	Ping(ctx context.Context) error
}

// Options configures NewServer. Service and Gate are required.
type Options struct {
	Addr     string
	Service  ExpenseService
	Gate     *auth.Gate
	Currency string
	Logger   *applog.Logger
	// RateLimit applies to write requests. The zero value uses ratelimit.DefaultConfig.
	RateLimit ratelimit.Config
	// TrustedProxies are extra CIDRs whose forwarded headers are believed.
	TrustedProxies []string
}

type Server struct {
	http.Server
	service   ExpenseService
	gate      *auth.Gate
	templates *template.Template
	format    core.Formatter
	logger    *applog.Logger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer parses the templates and builds the router. It does not listen.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("http: expense service is required")
	}
	if opts.Gate == nil {
		return nil, errors.New("http: auth gate is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	rlConfig := opts.RateLimit
	if rlConfig.RequestsPerMinute == 0 && len(rlConfig.Methods) == 0 {
		rlConfig = ratelimit.DefaultConfig()
	}

	s := &Server{
		service:  opts.Service,
		gate:     opts.Gate,
		format:   core.NewFormatter(opts.Currency),
		logger:   logger.WithComponent(applog.ComponentHTTP),
		detector: security.NewDetector(),
		limiter:  ratelimit.NewLimiter(rlConfig),
		started:  time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.limiter.Stop()
			return nil, fmt.Errorf("http: %w", err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("pages").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.limiter.Stop()
		return nil, fmt.Errorf("http: parse templates: %w", err)
	}
	s.templates = t

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.limiter.Stop()
		return nil, fmt.Errorf("http: mount static assets: %w", err)
	}

	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(middleware.Compress(5))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, nil))
	r.Use(s.gate.RequireLogin)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)

		r.Get("/", s.handleIndex)
		r.Post("/", s.handleCreate)
		r.Post("/delete", s.handleDelete)
		r.Get("/edit", s.handleEditForm)
		r.Post("/edit", s.handleEdit)
		r.Get("/export_csv", s.handleExport)
		r.Get("/display", s.handleDisplay)

		r.Get(auth.LoginPath, s.handleLoginForm)
		r.Post(auth.LoginPath, s.handleLogin)
		r.Get("/logout", s.handleLogout)

		RegisterAPI(humachi.New(r, APIConfig()), s.service)
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// APIConfig is the OpenAPI configuration of the JSON API.
func APIConfig() huma.Config {
	cfg := huma.DefaultConfig("Expenses API", "1.0.0")
	cfg.OpenAPIPath = "/api/v1/openapi"
	cfg.DocsPath = "/api/v1/docs"
	cfg.SchemasPath = "/api/v1/schemas"
	return cfg
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": s.format.FormatText,
	}
}

// Shutdown stops the rate limiter and drains the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		m := s.tracer.GetMetrics()
		s.logger.InfoContext(ctx, "HTTP server shutting down",
			applog.FieldOperation, applog.OpShutdown,
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.GetMetrics().TotalHits,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
		err = s.Server.Shutdown(ctx)
	})
	return err
}
