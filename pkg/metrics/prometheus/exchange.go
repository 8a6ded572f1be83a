// Package prometheus provides the Prometheus-backed metrics implementations.
//
// Import with a blank import to register the constructors:
//
//	import _ "github.com/hydrosim/exchange/pkg/metrics/prometheus"
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hydrosim/exchange/pkg/metrics"
)

func init() {
	metrics.RegisterExchangeMetricsConstructor(newExchangeMetrics)
}

// exchangeMetrics is the Prometheus implementation of metrics.ExchangeMetrics.
// All methods are nil-safe so callers can hold a nil instance when metrics
// are disabled.
type exchangeMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	payloadBytes    *prometheus.HistogramVec
	liveSessions    prometheus.Gauge
}

func newExchangeMetrics() metrics.ExchangeMetrics {
	reg := metrics.GetRegistry()

	return &exchangeMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_requests_total",
				Help: "Total number of handled RPC requests by path and HTTP status",
			},
			[]string{"path", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_request_duration_seconds",
				Help:    "RPC handling duration by path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		payloadBytes: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_payload_bytes",
				Help:    "Payload size in bytes moved through variable slots",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10),
			},
			[]string{"direction"}, // "send", "receive"
		),
		liveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "exchange_live_sessions",
				Help: "Current number of live sessions in the registry",
			},
		),
	}
}

// ObserveRequest records one handled RPC.
func (m *exchangeMetrics) ObserveRequest(path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// ObservePayload records payload bytes moved through a slot.
func (m *exchangeMetrics) ObservePayload(direction string, bytes int) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues(direction).Observe(float64(bytes))
}

// SetLiveSessions records the current session count.
func (m *exchangeMetrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.liveSessions.Set(float64(n))
}
