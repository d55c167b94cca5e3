package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Server is the JSON API server.
type Server struct {
	http.Server
	ledger  *services.LedgerService
	logger  *applog.Logger
	events  *applog.StructuredLogger
	limiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// Option customizes a Server.
type Option func(*serverOptions)

type serverOptions struct {
	rateLimit ratelimit.Config
	logger    *applog.Logger
}

// WithRateLimit overrides the write rate limit.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(o *serverOptions) { o.rateLimit = cfg }
}

func WithLogger(l *applog.Logger) Option {
	return func(o *serverOptions) { o.logger = l }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.LedgerService, opts ...Option) *Server {
	o := serverOptions{
		rateLimit: ratelimit.DefaultConfig(),
		logger:    applog.New(applog.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		ledger:  ledger,
		logger:  o.logger.WithComponent(applog.ComponentHTTP),
		events:  applog.NewStructuredLogger(o.logger),
		limiter: ratelimit.NewLimiter(o.rateLimit),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	detector := security.NewDetector()
	tracer := trace.NewMiddleware(detector.ExtractClientIP, s.logger)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(tracer.Middleware)
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(detector.Middleware(s.logger))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
			TooManyRequestsError().Write(w)
		}))

		r.Get("/dashboard", s.handleDashboard)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/budgets", s.handleListBudgets)
		r.Post("/budgets", s.handleCreateBudget)
		r.Delete("/budgets/{id}", s.handleDeleteBudget)
		r.Put("/budgets/{id}/limit", s.handleReallocateBudget)

		r.Post("/import/json", s.handleImportJSON)
		r.Post("/import/csv", s.handleImportCSV)
		r.Get("/export/json", s.handleExportJSON)
		r.Get("/export/csv", s.handleExportCSV)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})
	return r
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// The store finishes loading before the server is constructed, so a
// serving process is always ready.
func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
