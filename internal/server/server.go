package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// Server manages the HTTP server lifecycle.
//
// It wraps an http.Server with configuration and provides methods for
// starting, stopping, and graceful shutdown.
type Server struct {
	config *Config
	server *http.Server
	logger *slog.Logger
}

// New creates a new server instance.
//
// Parameters:
//   - config: server configuration (timeouts, port, size limits)
//   - handler: the root HTTP handler
//   - logger: structured logger instance
//
// Returns a new Server instance.
func New(config *Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		config: config,
		server: &http.Server{
			Addr:           config.Addr(),
			Handler:        handler,
			ReadTimeout:    config.ReadTimeout,
			WriteTimeout:   config.WriteTimeout,
			IdleTimeout:    config.IdleTimeout,
			MaxHeaderBytes: config.MaxHeaderBytes,
			ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
	}
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully within the configured shutdown timeout.
//
// Returns an error if the listener cannot be opened, the server fails, or
// shutdown does not complete in time. Returns nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an already open listener, which it takes ownership of.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Debug("Starting HTTP server", "addr", ln.Addr().String())
		serveErr <- s.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		s.logger.Debug("Shutdown signal received")
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server with a timeout.
//
// It waits for active connections to finish before shutting down, up to
// the deadline of ctx.
//
// Returns an error if the shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("Shutting down server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Debug("Server stopped gracefully")
	return nil
}
