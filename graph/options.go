package graph

import "time"

// DefaultMaxVisits is the iteration bound applied when Options.MaxVisits is
// zero. The bound is deliberately explicit: a run is never allowed to loop
// without limit, even when the caller configures nothing.
const DefaultMaxVisits = 25

// Options configures Executor behavior. Zero values select documented
// defaults; there is no ambient global configuration, so concurrent runs
// with different policies are possible.
type Options struct {
	// MaxVisits bounds how many times a node may be revisited within one
	// run. A node may therefore execute at most MaxVisits+1 times. When the
	// bound would be exceeded the run fails with an IterationLimitError.
	// Zero selects DefaultMaxVisits.
	MaxVisits int

	// DefaultNodeTimeout bounds each node invocation that has no per-node
	// override (see WithNodeTimeout). Zero disables the default timeout.
	DefaultNodeTimeout time.Duration

	// Metrics, if non-nil, receives Prometheus observations for runs, node
	// latencies, suspensions, and iteration-limit terminations.
	Metrics *PrometheusMetrics
}

// maxVisits resolves the effective iteration bound.
func (o Options) maxVisits() int {
	if o.MaxVisits > 0 {
		return o.MaxVisits
	}
	return DefaultMaxVisits
}

// Option is a functional option for configuring an Executor.
type Option func(*Options)

// WithMaxVisits sets the per-node revisit bound for runs of this Executor.
//
// Sizing guidance: set to the largest loop count a healthy workflow should
// ever need (e.g. a research loop capped at 3 refinements needs MaxVisits of
// at least 3). The bound is a guard against misconfigured routing, not a
// scheduling mechanism.
func WithMaxVisits(n int) Option {
	return func(o *Options) {
		o.MaxVisits = n
	}
}

// WithDefaultNodeTimeout bounds every node invocation that carries no
// per-node override. On timeout the node's attempt fails with a NodeError
// wrapping context.DeadlineExceeded.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.DefaultNodeTimeout = d
	}
}

// WithMetrics attaches Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	exec := graph.NewExecutor(reducer, st, emitter, graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *PrometheusMetrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}
