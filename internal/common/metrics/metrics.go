// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_searches_total",
			Help: "Total provider search calls by platform and outcome",
		},
		[]string{"platform", "status"},
	)

	ProviderSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "provider_search_duration_seconds",
			Help: "Duration of provider search calls in seconds",
		},
		[]string{"platform"},
	)

	CompletionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_calls_total",
			Help: "Total completion provider calls by outcome",
		},
		[]string{"status"},
	)

	CompletionRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "completion_retries_total",
			Help: "Total completion attempts beyond the first",
		},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of pipeline stages in seconds",
		},
		[]string{"stage"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total pipeline operations by operation and outcome",
		},
		[]string{"operation", "status"},
	)
)
