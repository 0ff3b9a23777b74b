package reputation

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRecomputeTotal           = "reputation_recompute_total"
	MetricRecomputeErrors          = "reputation_recompute_errors_total"
	MetricRecomputeDuration        = "reputation_recompute_duration_seconds"
	MetricLastRecomputeTimestamp   = "reputation_last_recompute_timestamp"
	MetricLastRecomputeMemberCount = "reputation_last_recompute_member_count"
)

// Metrics contains Prometheus metrics for trust score recomputation.
// All operations are thread-safe.
type Metrics struct {
	recomputeTotal           prometheus.Counter
	recomputeErrors          prometheus.Counter
	recomputeDuration        prometheus.Histogram
	lastRecomputeTimestamp   prometheus.Gauge
	lastRecomputeMemberCount prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		recomputeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecomputeTotal,
			Help: "Total number of trust score recomputation operations",
		}),
		recomputeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRecomputeErrors,
			Help: "Total number of trust score recomputation errors",
		}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRecomputeDuration,
			Help:    "Histogram of trust score recomputation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}),
		lastRecomputeTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastRecomputeTimestamp,
			Help: "Unix timestamp of the last trust score recomputation",
		}),
		lastRecomputeMemberCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastRecomputeMemberCount,
			Help: "Number of members processed in the last trust score recomputation",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncRecomputeTotal increments the recompute total counter.
func (m *Metrics) IncRecomputeTotal() {
	m.recomputeTotal.Inc()
}

// IncRecomputeErrors increments the recompute errors counter.
func (m *Metrics) IncRecomputeErrors() {
	m.recomputeErrors.Inc()
}

// ObserveRecomputeDuration records a recompute duration sample.
func (m *Metrics) ObserveRecomputeDuration(seconds float64) {
	m.recomputeDuration.Observe(seconds)
}

// SetLastRecomputeTimestamp sets the last recompute timestamp gauge.
func (m *Metrics) SetLastRecomputeTimestamp(timestamp float64) {
	m.lastRecomputeTimestamp.Set(timestamp)
}

// SetLastRecomputeMemberCount sets the last recompute member count gauge.
func (m *Metrics) SetLastRecomputeMemberCount(count float64) {
	m.lastRecomputeMemberCount.Set(count)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.recomputeTotal,
		m.recomputeErrors,
		m.recomputeDuration,
		m.lastRecomputeTimestamp,
		m.lastRecomputeMemberCount,
	}
}
