package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ternarybob/shiftlog/internal/app"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server owns the routed, middleware-wrapped HTTP surface of the app
type Server struct {
	app     *app.App
	handler http.Handler
	addr    string
}

// New builds the route table and middleware chain for application
func New(application *app.App) *Server {
	s := &Server{
		app:  application,
		addr: net.JoinHostPort(application.Config.Server.Host, strconv.Itoa(application.Config.Server.Port)),
	}
	s.handler = s.withConditionalMiddleware(s.setupRoutes())
	return s
}

// Addr is the configured listen address
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, listener, shutdownTimeout)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.app.Logger.Info().Str("address", listener.Addr().String()).Msg("HTTP server listening")
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.app.Logger.Info().Msg("Draining HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-serveErr

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
