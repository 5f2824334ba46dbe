package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every aggflat metric.
const Namespace = "aggflat"

// Aggregation Prometheus metrics.
var (
	FlattenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "flatten_total",
			Help:      "Flatten operations by outcome",
		},
		[]string{"outcome"}, // "ok" / "malformed" / "error"
	)

	UnknownAggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "unknown_aggregations_total",
			Help:      "Aggregation results omitted because their kind is not recognized",
		},
		[]string{"kind"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"status"},
	)

	SearchRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "response_cache_total",
			Help:      "Search response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var aggMetricsRegistered bool

// RegisterAggregationMetrics registers Prometheus aggregation metrics. Must be called once from main.
func RegisterAggregationMetrics() {
	if aggMetricsRegistered {
		return
	}
	prometheus.MustRegister(FlattenTotal)
	prometheus.MustRegister(UnknownAggregationsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(ResponseCacheTotal)
	aggMetricsRegistered = true
}
