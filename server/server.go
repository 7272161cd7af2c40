// Package server provides HTTP server management and lifecycle handling for the service.
// It includes server setup, middleware configuration, route management, and graceful
// shutdown capabilities with proper error handling and logging.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/pulse-api/config"
	"github.com/giygas/pulse-api/handlers"
	"github.com/giygas/pulse-api/health"
	"github.com/giygas/pulse-api/logging"
	"github.com/giygas/pulse-api/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ServiceName identifies this service in the greeting payload and logs
const ServiceName = "pulse-api"

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	config      *config.Config
	registry    *metrics.Registry
	httpMetrics *metrics.HTTPMetrics
	reporter    *health.Reporter
	rateLimiter *RateLimiter
}

// route maps one (method, pattern) pair to its handler
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

// NewServer creates a new server instance. It fails if the route table
// contains duplicate (method, pattern) entries, which is a wiring bug.
func NewServer(cfg *config.Config, registry *metrics.Registry, httpMetrics *metrics.HTTPMetrics, reporter *health.Reporter) (*Server, error) {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		config:      cfg,
		registry:    registry,
		httpMetrics: httpMetrics,
		reporter:    reporter,
		rateLimiter: NewRateLimiter(cfg.RateLimitRate, cfg.RateLimitCapacity, httpMetrics.RateLimiterBuckets),
	}

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	return s, nil
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.DefaultLoggingService.Logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.rateLimiter.Handler)
	s.router.Use(s.httpMetrics.Middleware)
}

// routes is the full route table for the service
func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/", handlers.Greeting(ServiceName)},
		{http.MethodGet, "/health", handlers.HealthCheck(s.reporter)},
		{http.MethodGet, "/metrics", handlers.Metrics(s.registry)},
	}
}

// setupRoutes registers the route table, rejecting duplicate entries
func (s *Server) setupRoutes() error {
	seen := make(map[string]bool)

	for _, rt := range s.routes() {
		key := rt.method + " " + rt.pattern
		if seen[key] {
			return fmt.Errorf("duplicate route registration: %s", key)
		}
		seen[key] = true

		s.router.Method(rt.method, rt.pattern, rt.handler)
	}

	s.router.NotFound(handlers.NotFound)
	s.router.MethodNotAllowed(handlers.MethodNotAllowed)

	return nil
}

// Router exposes the configured handler, mainly for httptest servers
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the server. A bind failure propagates to the caller, which
// treats it as fatal: the process must not keep running without its port.
func (s *Server) Start() error {
	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
