// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_queries_total",
			Help: "Total number of queries handled, by primary intent",
		},
		[]string{"intent"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_provider_calls_total",
			Help: "Total number of provider gateway calls, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "engine_provider_call_duration_seconds",
			Help: "Duration of provider gateway calls in seconds",
		},
		[]string{"provider"},
	)

	SectionsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_sections_total",
			Help: "Total response sections emitted, by provenance and confidence",
		},
		[]string{"provenance", "confidence"},
	)

	RetrieverSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_retriever_searches_total",
			Help: "Total semantic retriever searches, by result",
		},
		[]string{"result"},
	)
)
