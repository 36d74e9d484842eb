// Package monitoring exposes Prometheus metrics for the HTTP surface and
// the terminal-session core.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each instance owns its own
// registry so tests can construct metrics without collisions.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Terminal session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	ViewersActive   prometheus.Gauge
	OutputBytes     prometheus.Counter
	InputBytes      prometheus.Counter

	// Copilot metrics
	CopilotRequests *prometheus.CounterVec
}

// NewMetrics creates a metrics collector backed by a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_terminal_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_sessions_created_total",
				Help: "Total number of terminal sessions created",
			},
		),
		ViewersActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_terminal_viewers_active",
				Help: "Number of attached WebSocket viewers",
			},
		),
		OutputBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_output_bytes_total",
				Help: "Terminal output bytes streamed to viewers",
			},
		),
		InputBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_terminal_input_bytes_total",
				Help: "Input bytes forwarded into terminal sessions",
			},
		),

		CopilotRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_copilot_requests_total",
				Help: "Total number of copilot queries",
			},
			[]string{"status"},
		),
	}
}

// Handler serves this collector's registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
