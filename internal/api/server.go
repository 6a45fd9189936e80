package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matrixise/amm-tracker/internal/coordinator"
	"github.com/matrixise/amm-tracker/internal/storage"
)

// Cycles is the coordinator surface the API drives.
type Cycles interface {
	Snapshot() coordinator.Snapshot
	SetOwner(owner string)
}

// Refresher bumps the shared refresh counter.
type Refresher interface {
	Fire() uint64
}

// History lists persisted snapshots.
type History interface {
	RecentSnapshots(ctx context.Context, owner string, limit int) ([]storage.Snapshot, error)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Symbols label placeholder rows before the first cycle settles.
	Symbols      []string
	DisplayChars int
}

// Server exposes the details view and its controls over HTTP.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     ServerConfig

	cycles  Cycles
	refresh Refresher
	history History
	health  http.Handler
	metrics http.Handler
}

// NewServer wires the routes. history, health and metrics may be nil; the
// matching endpoints are then not mounted.
func NewServer(config ServerConfig, cycles Cycles, refresh Refresher, history History, health, metrics http.Handler) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		config:  config,
		cycles:  cycles,
		refresh: refresh,
		history: history,
		health:  health,
		metrics: metrics,
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

func (s *Server) setupRoutes() {
	if s.health != nil {
		s.router.Method(http.MethodGet, "/health", s.health)
	}
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/details", s.handleDetails)
		r.Post("/refresh", s.handleRefresh)
		r.Put("/owner", s.handleSetOwner)
		r.Get("/history", s.handleHistory)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	slog.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
