// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Manipulation metrics
	ManipulationsTotal *prometheus.CounterVec
	ImpactBps          *prometheus.HistogramVec
	SwapVolume         *prometheus.CounterVec

	// Attack run metrics
	AttacksTotal          *prometheus.CounterVec
	LiquidationsTriggered prometheus.Counter
	SequenceReverts       prometheus.Counter
	AttackDuration        prometheus.Histogram

	// Storage metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "amm_attack_lab"
	}

	return &Metrics{
		// Manipulation metrics
		ManipulationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manipulation",
			Name:      "steps_total",
			Help:      "Total number of manipulation steps executed by kind",
		}, []string{"kind"}),
		ImpactBps: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "manipulation",
			Name:      "impact_bps",
			Help:      "Measured price impact per manipulation step in basis points",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"kind"}),
		SwapVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "manipulation",
			Name:      "swap_volume_tokens_total",
			Help:      "Total whole tokens swapped through the pool by direction",
		}, []string{"direction"}),

		// Attack run metrics
		AttacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attack",
			Name:      "runs_total",
			Help:      "Total number of attack runs by scenario and status",
		}, []string{"scenario", "status"}),
		LiquidationsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attack",
			Name:      "liquidations_triggered_total",
			Help:      "Total number of attack runs that made the position liquidatable",
		}),
		SequenceReverts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "attack",
			Name:      "sequence_reverts_total",
			Help:      "Total number of attack sequences rolled back after a step failure",
		}),
		AttackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "attack",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of one attack run in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Storage metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"phase"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordManipulation records one completed manipulation step.
func RecordManipulation(kind string, impactBps int64) {
	DefaultMetrics.ManipulationsTotal.WithLabelValues(kind).Inc()
	DefaultMetrics.ImpactBps.WithLabelValues(kind).Observe(float64(impactBps))
}

// RecordAttack records one finished attack run.
func RecordAttack(scenario, status string, triggersLiquidation bool, durationSeconds float64) {
	DefaultMetrics.AttacksTotal.WithLabelValues(scenario, status).Inc()
	DefaultMetrics.AttackDuration.Observe(durationSeconds)
	if triggersLiquidation {
		DefaultMetrics.LiquidationsTriggered.Inc()
	}
}

// RecordRevert increments the sequence revert counter.
func RecordRevert() {
	DefaultMetrics.SequenceReverts.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues("attack").Observe(durationSeconds)
}
