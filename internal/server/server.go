// Package server exposes Prometheus metrics and health probes over HTTP for
// the lifetime of a pipeline run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// DefaultMetricsPath is used when Config.MetricsPath is empty.
const DefaultMetricsPath = "/metrics"

// readinessTimeout bounds all readiness checks of one probe.
const readinessTimeout = 5 * time.Second

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

// Check implements HealthChecker.
func (f CheckFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	MetricsPath     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server serves /metrics, /healthz and /readyz.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	gatherer   prometheus.Gatherer
	cfg        Config
	logger     zerolog.Logger

	mu     sync.RWMutex
	checks map[string]HealthChecker
}

// New creates a server exposing the metrics collected by gatherer.
func New(cfg Config, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		gatherer: gatherer,
		cfg:      cfg,
		logger:   logger.With().Str("component", "metrics-server").Logger(),
		checks:   make(map[string]HealthChecker),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// AddCheck registers a readiness check under name, replacing any previous
// check of the same name.
func (s *Server) AddCheck(name string, c HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = c
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	r.Method(http.MethodGet, s.cfg.MetricsPath, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{
		ErrorLog: promLogger{logger: s.logger},
	}))

	return r
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on metrics address: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().
		Str("address", ln.Addr().String()).
		Str("metrics_path", s.cfg.MetricsPath).
		Msg("metrics server starting")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for name, c := range s.checks {
		checks[name] = c
	}
	s.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		if err := checks[name].Check(ctx); err != nil {
			ready = false
			results[name] = err.Error()
			s.logger.Warn().Err(err).Str("check", name).Msg("readiness check failed")
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{Status: "not_ready", Checks: results})
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{Status: "ready", Checks: results})
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// promLogger routes promhttp errors into zerolog.
type promLogger struct {
	logger zerolog.Logger
}

func (l promLogger) Println(v ...any) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
