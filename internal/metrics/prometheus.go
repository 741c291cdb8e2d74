package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "atlas_mind_chat_duration_seconds",
			Help:    "Chat pipeline duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)

	ChatTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_mind_chat_total",
			Help: "Total number of chat requests processed",
		},
		[]string{"status"},
	)

	TranslationRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_mind_translation_repairs_total",
			Help: "Total translated queries repaired before execution",
		},
		[]string{"kind"},
	)

	ChatShortCircuits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_mind_chat_short_circuits_total",
			Help: "Total chat requests answered without composition",
		},
	)

	GraphRecordsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atlas_mind_graph_records_count",
			Help:    "Number of graph records per chat query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_mind_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_mind_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_mind_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ResourcesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_mind_resources_processed_total",
			Help: "Total resources ingested",
		},
	)

	ConceptsLinked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "atlas_mind_concepts_linked_total",
			Help: "Total concepts linked into the graph",
		},
	)

	WorkflowsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atlas_mind_workflows_executed_total",
			Help: "Total agent workflows executed",
		},
		[]string{"workflow", "status"},
	)
)

func Init() {
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(ChatTotal)
	prometheus.MustRegister(TranslationRepairs)
	prometheus.MustRegister(ChatShortCircuits)
	prometheus.MustRegister(GraphRecordsCount)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(ResourcesProcessed)
	prometheus.MustRegister(ConceptsLinked)
	prometheus.MustRegister(WorkflowsExecuted)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
