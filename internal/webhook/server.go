// Package webhook exposes the camera HTTP ingress and runs the HTTP server.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Server serves a handler until its context is cancelled.
type Server struct {
	name    string
	addr    string
	handler http.Handler

	bound chan string
}

// NewServer creates a server named name (used in logs) listening on host:port.
// Port 0 picks a free port; see Addr.
func NewServer(name, host string, port int, handler http.Handler) *Server {
	return &Server{
		name:    name,
		addr:    net.JoinHostPort(host, fmt.Sprint(port)),
		handler: handler,
		bound:   make(chan string, 1),
	}
}

// Addr blocks until Run has bound its listener and returns the bound address.
func (s *Server) Addr(ctx context.Context) (string, error) {
	select {
	case addr := <-s.bound:
		s.bound <- addr
		return addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run listens and serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%s server: %w", s.name, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("server", s.name).Str("addr", ln.Addr().String()).Msg("HTTP server listening")
	s.bound <- ln.Addr().String()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		return fmt.Errorf("%s server: %w", s.name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("server", s.name).Msg("HTTP server shutdown error")
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", s.name, err)
	}
	return nil
}
