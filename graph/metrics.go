package graph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics holds the Prometheus collectors the executor observes.
// Attach it with WithMetrics; a nil metrics value disables collection.
//
// All collectors live in the "stategraph" namespace:
//   - stategraph_runs_total{status}: finished runs by terminal status
//   - stategraph_node_duration_seconds{node_id,status}: node latency
//   - stategraph_suspensions_total: runs that paused for an external decision
//   - stategraph_iteration_limit_total: runs stopped by the revisit bound
//   - stategraph_inflight_runs: runs currently executing
type PrometheusMetrics struct {
	runsTotal           *prometheus.CounterVec
	nodeDuration        *prometheus.HistogramVec
	suspensionsTotal    prometheus.Counter
	iterationLimitTotal prometheus.Counter
	inflightRuns        prometheus.Gauge
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to use the process-global registry, or a
// fresh prometheus.NewRegistry() in tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "runs_total",
			Help:      "Finished workflow runs by terminal status.",
		}, []string{"status"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stategraph",
			Name:      "node_duration_seconds",
			Help:      "Node execution latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"node_id", "status"}),
		suspensionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "suspensions_total",
			Help:      "Runs paused awaiting an external decision.",
		}),
		iterationLimitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stategraph",
			Name:      "iteration_limit_total",
			Help:      "Runs terminated by the per-node revisit bound.",
		}),
		inflightRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stategraph",
			Name:      "inflight_runs",
			Help:      "Workflow runs currently executing.",
		}),
	}

	reg.MustRegister(
		m.runsTotal,
		m.nodeDuration,
		m.suspensionsTotal,
		m.iterationLimitTotal,
		m.inflightRuns,
	)
	return m
}

// runStarted marks a run as in flight. Nil-safe.
func (m *PrometheusMetrics) runStarted() {
	if m == nil {
		return
	}
	m.inflightRuns.Inc()
}

// runFinished records a run's terminal status and clears its in-flight mark.
// Nil-safe.
func (m *PrometheusMetrics) runFinished(status RunStatus) {
	if m == nil {
		return
	}
	m.inflightRuns.Dec()
	m.runsTotal.WithLabelValues(status.String()).Inc()
	if status == StatusSuspended {
		m.suspensionsTotal.Inc()
	}
}

// observeNode records one node invocation's latency. Nil-safe.
func (m *PrometheusMetrics) observeNode(nodeID, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(nodeID, status).Observe(elapsed.Seconds())
}

// iterationLimitHit counts a run stopped by the revisit bound. Nil-safe.
func (m *PrometheusMetrics) iterationLimitHit() {
	if m == nil {
		return
	}
	m.iterationLimitTotal.Inc()
}
