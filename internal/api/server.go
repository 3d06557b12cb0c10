package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/leadops/internal/config"
)

// Server wraps the HTTP server for the recipient API.
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server around an already configured router.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{config: cfg, handler: handler}
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.handler,
		// Uploads of large recipient files need a generous read window.
		ReadTimeout:       2 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
