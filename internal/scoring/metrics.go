package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoringOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoring_requests_total",
			Help: "Scoring requests by terminal state",
		},
		[]string{"state"},
	)

	lookupDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoring_repeat_lookup_degraded_total",
			Help: "Repeat-device lookups that failed or timed out and were treated as 0",
		},
	)

	riskScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	modelLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_model_duration_seconds",
			Help:    "Risk model inference latency",
			Buckets: prometheus.DefBuckets,
		},
	)
)
