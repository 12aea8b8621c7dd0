// Package server wires the HTTP router and runs it with graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc stops one component within the shutdown deadline.
type ShutdownFunc func(ctx context.Context) error

// Options configures the listener and shutdown budget.
type Options struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type component struct {
	name string
	stop ShutdownFunc
}

// Server runs an http.Server and stops registered components after it drains.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu         sync.Mutex
	components []component
}

// New creates a Server for handler.
func New(handler http.Handler, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           handler,
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadTimeout,
			WriteTimeout:      opts.WriteTimeout,
		},
		shutdownTimeout: opts.ShutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers fn to run after the HTTP server stops. Components
// stop in reverse registration order, so the store registered first is
// closed last.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components = append(s.components, component{name: name, stop: fn})
}

// Run starts the server and blocks until ctx is done or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.shutdown(ctx)
}

// shutdown drains in-flight requests, which may still be debiting credits,
// and then stops components.
func (s *Server) shutdown(ctx context.Context) error {
	s.logger.Info("stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		// Components are still stopped so connections are released.
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.Lock()
	components := append([]component(nil), s.components...)
	s.mu.Unlock()

	var errs []error
	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.stop(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		s.logger.Info("component stopped", "name", c.name)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
