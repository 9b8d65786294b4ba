package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"graphy/internal/config"
	"graphy/internal/orchestrator"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	srv     *http.Server
	handler *Handler
	logger  *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, deps orchestrator.DependencyFeed, metrics Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	handler := NewHandler(cfg, deps, metrics, logger)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		srv:     srv,
		handler: handler,
		logger:  logger,
	}
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}
