package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Assignment outcome label values. "matched" is a roster hit from a
// real matcher decision, "fallback" a substitute after a failed
// completion, "unknown_name" a decision naming no roster agent.
const (
	OutcomeMatched     = "matched"
	OutcomeFallback    = "fallback"
	OutcomeUnknownName = "unknown_name"
)

// Collector holds all crewkit Prometheus metrics.
type Collector struct {
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmPromptTokens    *prometheus.CounterVec

	assignmentsTotal *prometheus.CounterVec

	embeddingsTotal prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewCollector registers all metrics on reg. A nil reg uses the default
// registerer; tests pass their own prometheus.NewRegistry so repeated
// construction does not panic on duplicate registration.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		llmRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total completion requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		llmRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Completion request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"provider", "model"},
		),
		llmPromptTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_prompt_tokens_total",
				Help:      "Estimated prompt tokens sent, by model",
			},
			[]string{"model"},
		),
		assignmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assignments_total",
				Help:      "Task assignments by matcher and outcome",
			},
			[]string{"matcher", "outcome"},
		),
		embeddingsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embeddings_total",
				Help:      "Total texts embedded",
			},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Embedding cache hits",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Embedding cache misses",
			},
		),
	}
}

// RecordLLMRequest records one completion call.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordPromptTokens adds an estimated prompt token count for a model.
func (c *Collector) RecordPromptTokens(model string, tokens int) {
	if tokens > 0 {
		c.llmPromptTokens.WithLabelValues(model).Add(float64(tokens))
	}
}

// RecordAssignment records one task assignment outcome.
func (c *Collector) RecordAssignment(matcher, outcome string) {
	c.assignmentsTotal.WithLabelValues(matcher, outcome).Inc()
}

// RecordEmbeddings adds a count of embedded texts.
func (c *Collector) RecordEmbeddings(n int) {
	if n > 0 {
		c.embeddingsTotal.Add(float64(n))
	}
}

// RecordCacheHit counts an embedding cache hit.
func (c *Collector) RecordCacheHit() { c.cacheHits.Inc() }

// RecordCacheMiss counts an embedding cache miss.
func (c *Collector) RecordCacheMiss() { c.cacheMisses.Inc() }
