package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WordsTotal tracks words handled per outcome (new, reprocessed, skipped, failed)
	WordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexophile_words_total",
			Help: "Total number of words handled, by outcome",
		},
		[]string{"outcome"},
	)

	// APIAttemptsTotal tracks completion API attempts per provider and result
	APIAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lexophile_api_attempts_total",
			Help: "Total number of completion API attempts",
		},
		[]string{"provider", "result"},
	)

	// APILatency tracks completion API call latency
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lexophile_api_latency_seconds",
			Help:    "Completion API call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider"},
	)

	// BackoffDelay tracks how long the pipeline slept before each retry
	BackoffDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lexophile_backoff_delay_seconds",
			Help:    "Delay applied before retrying a rate-limited request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// StoreSaveErrors tracks failed writes of the JSON store
	StoreSaveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lexophile_store_save_errors_total",
			Help: "Total number of failed store writes",
		},
	)
)

// Outcome labels for WordsTotal.
const (
	OutcomeNew         = "new"
	OutcomeReprocessed = "reprocessed"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)
