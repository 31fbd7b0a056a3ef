// Package metrics holds the Prometheus collectors of the client core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client collectors. Build it with New so every
// collector is registered exactly once on the given registry.
type Metrics struct {
	// APIRequests counts finished API calls.
	// Labels: method, path, status ("error" when no response was received).
	APIRequests *prometheus.CounterVec

	// APIDuration measures API call latency. Labels: method, path.
	APIDuration *prometheus.HistogramVec

	// SessionClears counts 401-triggered session teardowns.
	SessionClears prometheus.Counter

	// CostCheckDegraded counts cost checks answered by the fail-open default.
	CostCheckDegraded prometheus.Counter

	// PollTicks counts conversation poll ticks. Label: result (ok, error).
	PollTicks *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "client_api_requests_total",
			Help: "Total number of API requests issued by the client",
		}, []string{"method", "path", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "client_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		SessionClears: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_session_clears_total",
			Help: "Sessions cleared after an unauthorized response",
		}),
		CostCheckDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_costcheck_degraded_total",
			Help: "Message cost checks answered by the fail-open default",
		}),
		PollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "client_poll_ticks_total",
			Help: "Conversation poll ticks by result",
		}, []string{"result"}),
		registry: reg,
	}
	reg.MustRegister(m.APIRequests, m.APIDuration, m.SessionClears, m.CostCheckDegraded, m.PollTicks)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
