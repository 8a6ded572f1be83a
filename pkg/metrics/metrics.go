// Package metrics manages the broker's Prometheus metrics registry.
//
// Metrics are opt-in: nothing is collected until InitRegistry is called.
// Constructors return nil when metrics are disabled, and the Prometheus
// implementations are nil-safe, so instrumented code never branches on
// whether metrics are on.
//
// The concrete collectors live in pkg/metrics/prometheus and register their
// constructors here at package initialization; importing that package with a
// blank import wires them up. The indirection keeps this package free of an
// import cycle with the implementation.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the process-local Prometheus registry and enables
// metrics collection. Call once at boot, before constructing collectors.
// Calling it again is a no-op.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the process-local registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns the HTTP handler serving the /metrics endpoint.
// Returns nil when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ExchangeMetrics records broker activity: RPC handling, payload volume, and
// the size of the live session table.
type ExchangeMetrics interface {
	// ObserveRequest records one handled RPC with its HTTP status and duration.
	ObserveRequest(path string, status int, duration time.Duration)

	// ObservePayload records payload bytes moved through a slot.
	// Direction is "send" or "receive".
	ObservePayload(direction string, bytes int)

	// SetLiveSessions records the current number of live sessions.
	SetLiveSessions(n int)
}

// NewExchangeMetrics creates a Prometheus-backed ExchangeMetrics instance.
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewExchangeMetrics() ExchangeMetrics {
	if !IsEnabled() || newPrometheusExchangeMetrics == nil {
		return nil
	}
	return newPrometheusExchangeMetrics()
}

// newPrometheusExchangeMetrics is registered by pkg/metrics/prometheus at
// package initialization.
var newPrometheusExchangeMetrics func() ExchangeMetrics

// RegisterExchangeMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterExchangeMetricsConstructor(constructor func() ExchangeMetrics) {
	newPrometheusExchangeMetrics = constructor
}
