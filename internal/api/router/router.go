// Package router wires the HTTP surface of the voice scheduler.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/halcyonmd/voice-scheduler/internal/http/handlers"
	httpmiddleware "github.com/halcyonmd/voice-scheduler/internal/http/middleware"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	ScheduleHandler *handlers.ScheduleHandler
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.ScheduleHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1/schedule", func(r chi.Router) {
		r.Post("/check", cfg.ScheduleHandler.CheckConflicts)
		r.Post("/alternatives", cfg.ScheduleHandler.GenerateAlternatives)
	})

	return r
}
