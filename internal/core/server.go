// Package core provides the API chassis for the RideAware backend: a chi
// router with cross-cutting middleware (request ids, structured logging,
// panic recovery, CORS, timeouts), the JSON response envelope, request
// decoding, and payload validation.
package core

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"rideaware/internal/config"
)

// Server holds the router and the dependencies shared by all handlers.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	router *chi.Mux
}

// NewServer builds the router with the standard middleware chain. Routes are
// mounted separately so tests can register only what they exercise.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})

	s.router.Use(Recoverer(logger))
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(logger))
	s.router.Use(corsHandler.Handler)
	s.router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	s.router.Get("/health", s.handleHealth)

	return s, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, APIResponse{Data: map[string]string{
		"status":      "ok",
		"environment": s.Config.Environment,
	}})
}
