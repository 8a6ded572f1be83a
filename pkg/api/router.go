package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hydrosim/exchange/internal/logger"
	"github.com/hydrosim/exchange/pkg/api/handlers"
	"github.com/hydrosim/exchange/pkg/metrics"
	"github.com/hydrosim/exchange/pkg/session"
)

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// The metrics parameter may be nil when metrics are disabled.
func NewRouter(config APIConfig, registry *session.Registry, m metrics.ExchangeMetrics) http.Handler {
	config.applyDefaults()

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if m != nil {
		r.Use(requestMetrics(m))
	}

	sessionHandler := handlers.NewSessionHandler(registry, m, config.MaxPayloadSize.Int64())
	healthHandler := handlers.NewHealthHandler(registry)

	// Session lifecycle
	r.Post("/create_session", sessionHandler.Create)
	r.Get("/get_session_status", sessionHandler.Status)
	r.Post("/join_session", sessionHandler.Join)
	r.Post("/end_session", sessionHandler.End)

	// Data exchange
	r.Post("/send_data", sessionHandler.Send)
	r.Get("/receive_data", sessionHandler.Receive)
	r.Get("/get_variable_flag", sessionHandler.Flag)
	r.Get("/get_variable_size", sessionHandler.Size)
	r.Get("/get_flags", sessionHandler.Flags)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	return r
}

// requestLogger is a custom middleware that logs requests using the internal
// logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}

// requestMetrics records per-request counters and latency histograms.
func requestMetrics(m metrics.ExchangeMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			m.ObserveRequest(r.URL.Path, ww.Status(), time.Since(start))
		})
	}
}
