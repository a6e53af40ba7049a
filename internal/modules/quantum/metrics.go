package quantum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// evaluationsTotal counts evaluator calls by operation and result
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entangle_evaluations_total",
		Help: "Total evaluator calls by operation and result",
	}, []string{"operation", "result"})

	// evaluationDuration tracks evaluator latency, cache hits included
	evaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "entangle_evaluation_duration_seconds",
		Help:    "Evaluator call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~260ms
	}, []string{"operation"})

	// cacheLookups counts memo cache lookups by result
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entangle_cache_lookups_total",
		Help: "Memo cache lookups by result",
	}, []string{"result"})
)
