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

	// BriefsTotal counts interpretation outcomes: "brief", "clarify", "cached".
	BriefsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dream_briefs_total",
			Help: "Briefs produced by interpretation, by outcome",
		},
		[]string{"outcome"},
	)

	ModelAttemptsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dream_model_attempts_failed_total",
			Help: "Model invocation attempts that failed during interpretation",
		},
	)

	AssetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dream_assets_total",
			Help: "Asset builds by kind and status",
		},
		[]string{"kind", "status"},
	)

	PlaceholderImages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dream_placeholder_images_total",
			Help: "Placeholder images substituted for model output, by reason",
		},
		[]string{"reason"},
	)

	ListingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dream_listings_created_total",
			Help: "Product and listing pairs written to the record store",
		},
	)
)
