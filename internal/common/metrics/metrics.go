// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_source_fetches_total",
			Help: "Total number of data source fetch attempts",
		},
		[]string{"source", "outcome"},
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "enrichment_source_fetch_duration_seconds",
			Help: "Duration of data source fetches in seconds",
		},
		[]string{"source"},
	)

	ReportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_jobs_total",
			Help: "Total number of report jobs by terminal status",
		},
		[]string{"status"},
	)

	ReportJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_jobs_active",
			Help: "Number of report jobs currently processing",
		},
	)

	ReportJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "report_job_duration_seconds",
			Help: "Duration of the initial enrichment and scoring pass in seconds",
		},
	)

	RetrySweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retry_sweeps_total",
			Help: "Total number of retry scheduler sweeps",
		},
	)

	RetriedSourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retried_sources_total",
			Help: "Total number of source retries by outcome",
		},
		[]string{"outcome"},
	)
)
