// Package http exposes the service's operational surface: health, readiness,
// metrics, and the manual cycle trigger.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/rain-alert-service/internal/engine"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// CycleRunner runs one decision cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*governor.Report, error)
	LeaseTTL(ctx context.Context) (time.Duration, error)
}

// Server exposes health, readiness, metrics, and trigger HTTP endpoints.
type Server struct {
	httpServer *http.Server
	runner     CycleRunner
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /trigger routes.
func NewServer(addr string, ready ReadinessChecker, runner CycleRunner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /trigger", s.handleTrigger)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleTrigger runs one decision cycle synchronously and returns its report.
// A trigger that collides with a running cycle gets 409 with a retry hint
// instead of double-posting.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.RunCycle(r.Context())
	if errors.Is(err, engine.ErrLeaseHeld) {
		ttl, ttlErr := s.runner.LeaseTTL(r.Context())
		if ttlErr != nil {
			ttl = 0
		}
		retry := int(ttl.Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
		writeJSON(w, http.StatusConflict, map[string]string{
			"status": "busy",
			"error":  fmt.Sprintf("a cycle is already running, retry in %ds", retry),
		})
		return
	}
	if err != nil {
		s.logger.Error("triggered cycle failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
