// Package server provides HTTP server management and lifecycle handling for
// the PillGuide API. It includes server setup, middleware configuration,
// route management, and graceful shutdown with proper error handling and
// logging.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pillguide/pillguide-api/analyzer"
	"github.com/pillguide/pillguide-api/config"
	"github.com/pillguide/pillguide-api/handlers"
	"github.com/pillguide/pillguide-api/interfaces"
	"github.com/pillguide/pillguide-api/logging"
	"github.com/pillguide/pillguide-api/metrics"
)

// Server represents the HTTP server
type Server struct {
	server        *http.Server
	router        chi.Router
	config        *config.Config
	store         interfaces.DocumentStore
	analyzer      *analyzer.Analyzer
	healthChecker interfaces.HealthChecker
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, store interfaces.DocumentStore, an *analyzer.Analyzer, healthChecker interfaces.HealthChecker) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler: router,
			Addr:    cfg.Address + ":" + cfg.Port,
			// Uploads wait on several model round-trips, so the write
			// timeout is much larger than a typical JSON API would use.
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 180 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:        router,
		config:        cfg,
		store:         store,
		analyzer:      an,
		healthChecker: healthChecker,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.DefaultLoggingService.Logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(RateLimitHandler)
	s.router.Use(metrics.Metrics)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/", handlers.Root())
		r.Get("/languages", handlers.Languages())
		r.Post("/prescriptions/upload", handlers.UploadPrescription(s.store, s.analyzer))
		r.Get("/prescriptions", handlers.ListPrescriptions(s.store))
		r.Post("/medications", handlers.AddMedication(s.store, s.analyzer))
		r.Get("/medications", handlers.ListMedications(s.store))
		r.Post("/contraindications/check", handlers.CheckContraindications(s.analyzer))
	})

	s.router.Get("/health", handlers.HealthCheck(s.healthChecker))
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start starts the server
func (s *Server) Start() error {
	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

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

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}
