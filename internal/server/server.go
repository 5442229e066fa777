// Package server provides the devwatch HTTP server: operational probes,
// metrics, the read-only resync API and whatever push endpoints are mounted.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/devwatch/internal/version"
	"github.com/HerbHall/devwatch/pkg/plugin"
)

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// HealthFunc reports the health of one component for GET /api/v1/health.
type HealthFunc func(ctx context.Context) plugin.HealthStatus

// SimpleRouteRegistrar can register routes on the server mux. The
// WebSocket handler mounts /ws through it.
type SimpleRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Server is the main devwatch HTTP server.
type Server struct {
	httpServer *http.Server
	devices    DeviceSource
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
	cfg        Config

	healthMu sync.RWMutex
	health   map[string]HealthFunc
}

// New creates a new Server with middleware and routes.
// Additional route registrars can be passed to register extra routes.
func New(cfg Config, devices DeviceSource, logger *zap.Logger, ready ReadinessChecker, extraRoutes ...SimpleRouteRegistrar) *Server {
	cfg = cfg.withDefaults()
	mux := http.NewServeMux()

	s := &Server{
		devices: devices,
		logger:  logger,
		mux:     mux,
		ready:   ready,
		cfg:     cfg,
		health:  make(map[string]HealthFunc),
	}

	s.registerRoutes()
	for _, r := range extraRoutes {
		r.RegisterRoutes(mux)
	}

	skip := []string{"/healthz", "/readyz", "/metrics"}

	// Middleware chain: outermost listed first.
	handler := Chain(mux,
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, skip),
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst, skip),
	)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// registerRoutes sets up all core routes.
func (s *Server) registerRoutes() {
	// Unversioned operational endpoints.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Versioned API endpoints.
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	if s.devices != nil {
		s.mux.HandleFunc("GET /api/v1/devices", s.handleListDevices)
		s.mux.HandleFunc("GET /api/v1/devices/{id}", s.handleGetDevice)
		s.mux.HandleFunc("GET /api/v1/groups", s.handleListGroups)
		s.mux.HandleFunc("GET /api/v1/categories", s.handleListCategories)
	}
}

// AddHealth registers a component reported by GET /api/v1/health.
func (s *Server) AddHealth(name string, fn HealthFunc) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.health[name] = fn
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server. Hijacked WebSocket
// connections are not tracked by net/http; close them through the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// handleHealthz is a liveness probe -- returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// handleReadyz checks readiness -- returns 200 if the server can serve traffic.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status     string                         `json:"status"`
	Service    string                         `json:"service"`
	Version    map[string]string              `json:"version"`
	Components map[string]plugin.HealthStatus `json:"components,omitempty"`
}

// handleHealth returns detailed health information. The overall status is
// "degraded" when any component reports something other than healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.healthMu.RLock()
	fns := make(map[string]HealthFunc, len(s.health))
	names := make([]string, 0, len(s.health))
	for name, fn := range s.health {
		fns[name] = fn
		names = append(names, name)
	}
	s.healthMu.RUnlock()
	sort.Strings(names)

	resp := HealthResponse{
		Status:  "ok",
		Service: "devwatch",
		Version: version.Map(),
	}
	if len(names) > 0 {
		resp.Components = make(map[string]plugin.HealthStatus, len(names))
	}
	for _, name := range names {
		hs := fns[name](r.Context())
		resp.Components[name] = hs
		if hs.Status != "healthy" {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
