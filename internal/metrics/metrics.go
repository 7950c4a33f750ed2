// Package metrics exposes the Prometheus counters and gauges the ingest
// pipeline increments. It is intentionally small: the read API's HTTP
// surface is the only consumer that registers a /metrics handler, per
// spec's treatment of observability as an ambient, not core, concern.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OperationsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_operations_ingested_total",
			Help: "Operations appended to a fork buffer, by network and type.",
		},
		[]string{"network", "type"},
	)

	OperationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_operations_dropped_total",
			Help: "Operations dropped because their state path dispatched to no known transform rule.",
		},
		[]string{"network", "path_head"},
	)

	ForksOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "combgraph_forks_open",
			Help: "Forks currently tracked in OPEN or CLOSED state, by network.",
		},
		[]string{"network"},
	)

	ForksOrphaned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_forks_orphaned_total",
			Help: "Forks transitioned to ORPHANED, by network and reason.",
		},
		[]string{"network", "reason"},
	)

	CheckpointsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_checkpoints_accepted_total",
			Help: "Checkpoints accepted into the checkpoint map, by network.",
		},
		[]string{"network"},
	)

	InvalidBoundaries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_invalid_boundaries_total",
			Help: "Checkpoints rejected by the Checkpoint Validator, by network.",
		},
		[]string{"network"},
	)

	WriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_write_failures_total",
			Help: "Graph store write transactions that failed after exhausting retries.",
		},
		[]string{"network"},
	)

	RecoveryFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "combgraph_recovery_fetches_total",
			Help: "Content-store fetches issued by the Recovery Subsystem, by outcome.",
		},
		[]string{"network", "outcome"},
	)
)

// Registry bundles every collector above so a caller can register them
// against a prometheus.Registerer exactly once, instead of relying on the
// package-level default registry (which makes tests that construct more
// than one metrics.Registry impossible).
type Registry struct {
	collectors []prometheus.Collector
}

// NewRegistry returns a Registry wrapping the package's collectors.
func NewRegistry() *Registry {
	return &Registry{collectors: []prometheus.Collector{
		OperationsIngested,
		OperationsDropped,
		ForksOpen,
		ForksOrphaned,
		CheckpointsAccepted,
		InvalidBoundaries,
		WriteFailures,
		RecoveryFetches,
	}}
}

// MustRegister registers every collector against reg, panicking on a
// duplicate-registration error as the prometheus client itself recommends
// for process-lifetime collectors.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	for _, c := range r.collectors {
		reg.MustRegister(c)
	}
}
