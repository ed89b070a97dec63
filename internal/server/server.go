// Package server serves heatmap artifacts over HTTP.
//
// Routes:
//
//	GET /health         liveness and version
//	GET /api/dates      selectable dates (?maturity= lists one change table)
//	GET /api/summary    per-sector summary for ?date=&maturity=
//	GET /api/heatmap    artifact for ?date=&maturity=&width=&height=&format=&viewport=
//
// Errors are written as RFC 7807 problem documents whose type is the error
// code, e.g. EMPTY_HIERARCHY for a date without data.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/marketmap/pkg/observability"
	"github.com/matzehuels/marketmap/pkg/pipeline"
)

// Source is a pipeline source that can also list its dates.
type Source interface {
	pipeline.Source
	Dates(ctx context.Context) ([]string, error)
}

// Config holds server configuration.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RequestTimeout bounds one pipeline run. Zero means 60s.
	RequestTimeout time.Duration

	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string

	Logger *log.Logger
	Runner *pipeline.Runner
	Source Source

	// Defaults seeds every request's options.
	Defaults pipeline.Options
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      *log.Logger
	runner   *pipeline.Runner
	src      Source
	defaults pipeline.Options
}

// New creates a server. The runner and source are required.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		router:   chi.NewRouter(),
		log:      logger.WithPrefix("server"),
		runner:   cfg.Runner,
		src:      cfg.Source,
		defaults: cfg.Defaults,
	}
	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{headerCache, headerRunID},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/dates", s.handleDates)
		r.Get("/summary", s.handleSummary)
		r.Get("/heatmap", s.handleHeatmap)
	})
}

// loggingMiddleware logs each request and reports it to the HTTP hooks.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, status, dur)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", dur,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Start listens and serves until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down with a grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
