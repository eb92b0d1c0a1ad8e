package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enviducate_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"query_type"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	DegradedResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_degraded_responses_total",
			Help: "Responses served with a degraded component",
		},
		[]string{"component"},
	)

	IndicatorAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_indicator_analyses_total",
			Help: "Indicator analyses run against the geospatial backend",
		},
		[]string{"indicator"},
	)

	WebSearchTriggered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enviducate_web_search_triggered_total",
			Help: "Total number of web searches triggered",
		},
	)

	MapsRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_maps_rendered_total",
			Help: "Map render outcomes",
		},
		[]string{"outcome"},
	)

	BackgroundTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enviducate_background_tasks_total",
			Help: "Background analysis tasks by final status",
		},
		[]string{"status"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(DegradedResponses)
	prometheus.MustRegister(IndicatorAnalyses)
	prometheus.MustRegister(WebSearchTriggered)
	prometheus.MustRegister(MapsRendered)
	prometheus.MustRegister(BackgroundTasks)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
