// Package api exposes the read-only status HTTP interface for the
// crawler.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/limits"
	"github.com/shopsignal/catalog-crawler/internal/metrics"
	"github.com/shopsignal/catalog-crawler/internal/pool"
)

// FrontierStats reports queue counters for the status payload.
type FrontierStats func() (pending, inFlight, seen int)

// Server wires the status routes. Every route is read-only; the crawl
// itself is driven by configuration, not this API.
type Server struct {
	router   chi.Router
	pool     *pool.Pool
	limits   *limits.Tracker
	frontier FrontierStats
	runID    string
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(p *pool.Pool, tracker *limits.Tracker, frontier FrontierStats, runID string, logger *zap.Logger) *Server {
	s := &Server{
		pool:     p,
		limits:   tracker,
		frontier: frontier,
		runID:    runID,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/status", s.status)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusPayload struct {
	RunID    string               `json:"run_id"`
	Pool     pool.Stats           `json:"pool"`
	Failed   []pool.FailedRequest `json:"failed_requests"`
	Limits   limits.Stats         `json:"limits"`
	Frontier frontierPayload      `json:"frontier"`
}

type frontierPayload struct {
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Seen     int `json:"seen"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	pending, inFlight, seen := s.frontier()
	payload := statusPayload{
		RunID:  s.runID,
		Pool:   s.pool.Stats(),
		Failed: s.pool.Failed(),
		Limits: s.limits.Snapshot(),
		Frontier: frontierPayload{
			Pending:  pending,
			InFlight: inFlight,
			Seen:     seen,
		},
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}
