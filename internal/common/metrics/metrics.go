// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	RoutingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routing_attempts_total",
			Help: "Routing pipeline attempts by outcome",
		},
		[]string{"outcome"},
	)

	RoutingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "routing_pipeline_duration_seconds",
			Help: "End to end duration of routing pipeline runs",
		},
	)

	StockConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "routing_stock_conflicts_total",
			Help: "Commits aborted because offer stock was below the requested quantity",
		},
	)

	ScoreUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_score_updates_total",
			Help: "Vendor score recomputations by trigger event",
		},
		[]string{"trigger"},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_sweep_runs_total",
			Help: "Hourly score sweep runs by status",
		},
		[]string{"status"},
	)
)
