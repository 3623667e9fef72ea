// Package metrics exposes Prometheus instrumentation for the scheduling
// message analysis engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itip_analyses_total",
		Help: "Total number of analyzed scheduling messages, labelled by iTIP method and status.",
	}, []string{"method", "status"})

	MessagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "itip_messages_skipped_total",
		Help: "Total number of messages no analyzer handled.",
	})

	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itip_recommendations_total",
		Help: "Total number of recommended actions, labelled by action.",
	}, []string{"action"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "itip_analysis_duration_ms",
		Help:    "Per-message analysis latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	CollaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itip_collaborator_failures_total",
		Help: "Total number of degraded collaborator calls, labelled by collaborator.",
	}, []string{"collaborator"})
)
