package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// GatewayMetrics bundles the Prometheus collectors the request pipeline
// records into. All collectors are registered on the registry returned by
// NewMetricsRegistry.
type GatewayMetrics struct {
	requests           *prometheus.CounterVec
	durations          *prometheus.HistogramVec
	auditDropped       prometheus.Counter
	reputationFailures prometheus.Counter
	panics             prometheus.Counter
}

// IncRequest records one completed dispatch.
func (m *GatewayMetrics) IncRequest(service, action, status string) {
	m.requests.WithLabelValues(service, action, status).Inc()
}

// ObserveDuration records a dispatch duration in seconds.
func (m *GatewayMetrics) ObserveDuration(service, action string, seconds float64) {
	m.durations.WithLabelValues(service, action).Observe(seconds)
}

// IncAuditDropped records an audit entry dropped on lock-acquisition timeout
// or persistent sink failure.
func (m *GatewayMetrics) IncAuditDropped() {
	m.auditDropped.Inc()
}

// IncReputationFailure records a failed-open reputation lookup.
func (m *GatewayMetrics) IncReputationFailure() {
	m.reputationFailures.Inc()
}

// IncPanicRecovered records a panic caught by the recovery middleware.
func (m *GatewayMetrics) IncPanicRecovered() {
	m.panics.Inc()
}

// Reset clears the vector collectors. Used in tests.
func (m *GatewayMetrics) Reset() {
	m.requests.Reset()
	m.durations.Reset()
}

// NewMetricsRegistry creates a new Prometheus registry with Go runtime
// collectors and the gateway collectors already registered.
func NewMetricsRegistry() (*prometheus.Registry, *GatewayMetrics) {
	reg := prometheus.NewRegistry()

	m := &GatewayMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of dispatched gateway requests",
			},
			[]string{"service", "action", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Gateway dispatch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "action"},
		),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_audit_entries_dropped_total",
			Help: "Audit entries dropped on lock timeout or sink failure",
		}),
		reputationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_reputation_failures_total",
			Help: "Reputation lookups that failed open",
		}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_panics_recovered_total",
			Help: "Panics recovered by the HTTP recovery middleware",
		}),
	}

	// Go runtime metrics (go_goroutines, go_memstats_*, etc.)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	reg.MustRegister(m.requests, m.durations, m.auditDropped, m.reputationFailures, m.panics)

	return reg, m
}
