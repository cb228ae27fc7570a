// Package api is a minimal read-only HTTP surface over the DLOB facade:
// /l2, /l3, and /best, each scoped to one market via query parameters.
// Adapted from 0xtitan6-polymarket-mm's internal/api/server.go: same
// http.Server shape and timeouts, but without the dashboard's WebSocket
// hub since this surface has nothing to push — every response is a
// point-in-time read of the caller-supplied DLOB.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/driftlabs/dlob-go/internal/metrics"
)

// Server serves the read-only book views.
type Server struct {
	addr     string
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer builds a Server listening on addr, answering from book.
func NewServer(addr string, book BookReader, logger *slog.Logger) *Server {
	handlers := NewHandlers(book, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/l2", handlers.HandleL2)
	mux.HandleFunc("/l3", handlers.HandleL3)
	mux.HandleFunc("/best", handlers.HandleBest)
	mux.Handle("/metrics", metrics.Handler())

	return &Server{
		addr:     addr,
		handlers: handlers,
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With("component", "api-server"),
	}
}

// Start blocks serving HTTP until Stop is called or the server errors.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
