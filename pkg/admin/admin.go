// Package admin provides the operator-facing HTTP endpoint.
//
// The admin server listens on its own address, separate from the worker
// pool's listener, and exposes metrics, health probes, and pool
// introspection. It is served by the standard library's concurrent server
// since the one-request-per-worker discipline applies only to application
// traffic.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"unishark/triton/pkg/journal"
	"unishark/triton/pkg/supervisor"
	"unishark/triton/pkg/telemetry/health"
)

// PoolSource exposes the supervisor state the admin endpoint reports.
type PoolSource interface {
	Stats() supervisor.Stats
	Snapshot() []supervisor.WorkerInfo
}

// EventSource exposes persisted worker lifecycle events.
type EventSource interface {
	Events(ctx context.Context, limit int) ([]journal.WorkerEvent, error)
}

// Options configures the admin server. Metrics, Pool, and Events may be
// nil; their endpoints respond 404 when unset.
type Options struct {
	// ListenAddress is the host:port to bind.
	ListenAddress string

	// Metrics is the Prometheus exposition handler.
	Metrics http.Handler

	// Checker serves the liveness and readiness probes.
	Checker *health.Checker

	// Pool is the supervisor being introspected.
	Pool PoolSource

	// Events is the worker event journal.
	Events EventSource

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the admin HTTP server.
type Server struct {
	opts         Options
	logger       *slog.Logger
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
}

// New creates an admin server. Call Start to bind and serve.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		opts:   opts,
		logger: logger.With("component", "admin"),
	}
}

// Start binds the admin address and begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to bind admin address %s: %w", s.opts.ListenAddress, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:        s.routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		s.logger.Info("admin server started", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the admin server. Shutdown is idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}
		s.logger.Info("admin server stopped")
	})
	return err
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	if s.opts.Checker != nil {
		mux.Handle("/health", s.opts.Checker.LivenessHandler())
		mux.Handle("/ready", s.opts.Checker.ReadinessHandler())
	}
	if s.opts.Pool != nil {
		mux.HandleFunc("/workers", s.handleWorkers)
	}
	if s.opts.Events != nil {
		mux.HandleFunc("/events", s.handleEvents)
	}

	return mux
}

// workersResponse is the /workers payload.
type workersResponse struct {
	Target  int                     `json:"target"`
	Active  int                     `json:"active"`
	Workers []supervisor.WorkerInfo `json:"workers"`
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.opts.Pool.Stats()
	resp := workersResponse{
		Target:  stats.Target,
		Active:  stats.Active,
		Workers: s.opts.Pool.Snapshot(),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.opts.Events.Events(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to query worker events", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []journal.WorkerEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}
