package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OptimizerRuns counts optimizer runs by outcome.
	OptimizerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppc_optimizer_runs_total",
		Help: "Optimizer runs by outcome",
	}, []string{"status"})

	// OptimizerRunDuration observes how long a full run takes.
	OptimizerRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppc_optimizer_run_duration_seconds",
		Help:    "Wall time of an optimizer run",
		Buckets: prometheus.DefBuckets,
	})

	// DecisionsEmitted counts decisions appended to the log by type.
	DecisionsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppc_decisions_emitted_total",
		Help: "Decisions appended to the decision log by type",
	}, []string{"type"})

	// DecisionDuplicates counts rows skipped by the append-time dedup.
	DecisionDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppc_decision_duplicates_total",
		Help: "Decision rows skipped as duplicates on append",
	})

	// ImpactComputations counts impact pipeline evaluations.
	ImpactComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ppc_impact_computations_total",
		Help: "Impact summary computations by cache outcome",
	}, []string{"cache"})

	// ReportsConsumed counts ingestion events consumed from Kafka.
	ReportsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ppc_reports_consumed_total",
		Help: "Report-ingested events consumed",
	})
)
