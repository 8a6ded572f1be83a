// Package api provides the broker's HTTP surface: the session lifecycle and
// data exchange endpoints, plus health probes for orchestration.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hydrosim/exchange/internal/logger"
	"github.com/hydrosim/exchange/pkg/metrics"
	"github.com/hydrosim/exchange/pkg/session"
)

// Server provides the HTTP server for the exchange broker API.
//
// Endpoints:
//   - POST /create_session, /join_session, /end_session: session lifecycle
//   - GET /get_session_status: lifecycle state
//   - POST /send_data, GET /receive_data: payload exchange
//   - GET /get_variable_flag, /get_variable_size, /get_flags: slot inspection
//   - GET /health, /health/ready: probes
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server          *http.Server
	registry        *session.Registry
	config          APIConfig
	shutdownTimeout time.Duration
	shutdownOnce    sync.Once
}

// NewServer creates a new broker HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
//
// Defaults are applied here to ensure the server works correctly even when
// created directly (e.g., in tests). This is idempotent with the defaults
// applied during config loading.
func NewServer(config APIConfig, registry *session.Registry, m metrics.ExchangeMetrics) *Server {
	config.applyDefaults()

	router := NewRouter(config, registry, m)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server:          server,
		registry:        registry,
		config:          config,
		shutdownTimeout: 5 * time.Second,
	}
}

// SetShutdownTimeout overrides the default graceful shutdown timeout.
// Must be called before Start().
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

// Start starts the broker HTTP server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns.
func (s *Server) Start(ctx context.Context) error {
	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("exchange server listening", "host", s.config.Host, "port", s.config.Port)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("exchange server shutdown signal received")
		// Create new context with timeout for graceful shutdown
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("exchange server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the broker server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("exchange server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("exchange server shutdown error: %w", err)
			logger.Error("exchange server shutdown error", "error", err)
		} else {
			logger.Info("exchange server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is configured to listen on.
func (s *Server) Port() int {
	return s.config.Port
}
