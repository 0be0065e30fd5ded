package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trademind"

var (
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Price predictions by outcome (ok or error kind)",
		},
		[]string{"outcome"},
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation searches by outcome (ok or error kind)",
		},
		[]string{"outcome"},
	)

	IntentDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_decisions_total",
			Help:      "Intent tracker decisions per turn",
		},
		[]string{"decision"},
	)

	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Extractor payloads discarded, by target and reason",
		},
		[]string{"target", "reason"},
	)

	OracleFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_failures_total",
			Help:      "Language oracle call failures by caller",
		},
		[]string{"caller"},
	)

	ModelLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_load_duration_seconds",
			Help:      "Time spent loading a brand regressor",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"brand", "status"},
	)
)
