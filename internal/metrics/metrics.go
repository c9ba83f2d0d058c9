package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Sweep Metrics
// =============================================================================

var (
	// QueryLatencySeconds observes every timed search call
	QueryLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annbench_query_latency_seconds",
			Help:    "Latency of a single timed search call by sweep kind and algorithm",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 14),
		},
		[]string{"dataset", "kind", "algorithm"},
	)

	// QueryRecall observes per-query recall against the linear scan
	QueryRecall = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annbench_query_recall",
			Help:    "Per-query recall against the exhaustive linear scan",
			Buckets: []float64{0.1, 0.5, 0.8, 0.9, 0.95, 0.99, 1},
		},
		[]string{"dataset", "kind", "algorithm"},
	)

	// SweepDurationSeconds measures one full sweep over the query set
	SweepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annbench_sweep_duration_seconds",
			Help:    "Wall-clock duration of a sweep over all queries",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"kind", "algorithm"},
	)

	// SweepErrorsTotal counts sweeps aborted by a failing search
	SweepErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annbench_sweep_errors_total",
			Help: "Total number of sweeps aborted by a search failure",
		},
		[]string{"kind", "algorithm"},
	)
)

// =============================================================================
// Run Metrics
// =============================================================================

var (
	// ReportsWrittenTotal counts persisted report artifacts
	ReportsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annbench_reports_written_total",
			Help: "Total number of report artifacts written",
		},
		[]string{"dataset"},
	)

	// DatasetsSkippedTotal counts datasets skipped before any sweep ran
	DatasetsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annbench_datasets_skipped_total",
			Help: "Total number of datasets skipped by reason",
		},
		[]string{"reason"},
	)

	// ConfigurationFailuresTotal counts configurations that produced no report
	ConfigurationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annbench_configuration_failures_total",
			Help: "Total number of configurations aborted before reporting",
		},
		[]string{"dataset", "stage"},
	)

	// ShardSize tracks the cardinality of each shard of the current plan
	ShardSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "annbench_shard_size",
			Help: "Number of vectors in each shard of the active plan",
		},
		[]string{"dataset", "shard"},
	)

	// IndexBuildSeconds measures index construction across all shards
	IndexBuildSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annbench_index_build_seconds",
			Help:    "Time spent building the sharded index",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"dataset", "shards"},
	)
)
