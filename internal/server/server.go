// Package server assembles the placetrack HTTP API: chi router, middleware
// chain, per-route rate limits and the record handlers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/config"
	"github.com/placetrack/placetrack/internal/core/store"
	apperrors "github.com/placetrack/placetrack/internal/errors"
	"github.com/placetrack/placetrack/internal/match"
	"github.com/placetrack/placetrack/internal/observability"
	"github.com/placetrack/placetrack/internal/ratelimit"
	"github.com/placetrack/placetrack/internal/server/handlers"
	servermw "github.com/placetrack/placetrack/internal/server/middleware"
)

// Dependencies carries everything the server needs beyond its listen config.
type Dependencies struct {
	Store          *store.Store
	Cache          *cache.Cache
	StrictLimiter  *ratelimit.Limiter
	GeneralLimiter *ratelimit.Limiter
	CountTTL       time.Duration
	DashboardTTL   time.Duration
	Version        string
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	deps   Dependencies
}

// New creates a new HTTP server instance
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(middleware.RealIP)

	// Custom middleware in order: RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		deps:   deps,
	}

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}

func (s *Server) matcher() *match.Service {
	return match.NewService(s.deps.Store, s.deps.Store, s.deps.Store)
}
