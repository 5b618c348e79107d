package assign

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/internal/metrics"
	"github.com/crewkit/crewkit/llm"
	"github.com/crewkit/crewkit/llm/tokenizer"
	"github.com/crewkit/crewkit/types"
)

// LLMMatcherConfig configures the completion-backed matcher.
type LLMMatcherConfig struct {
	// Model used for allocation completions. Empty lets the provider
	// apply its default.
	Model string
	// FallbackName is returned whenever the completion fails, marked
	// as a fallback so the resolver keeps the provenance even when the
	// name is a valid roster entry. Empty means an empty name is
	// returned, which the resolver maps to the default agent.
	FallbackName string
	// MaxTokens bounds the completion; agent names are short.
	MaxTokens int
	// Temperature for the completion.
	Temperature float32
}

// LLMMatcher asks a completion endpoint to pick an agent. It never
// returns an error from a failed completion: transport failures,
// non-success statuses, and empty responses all collapse to the
// fallback name, marked as a fallback so the provenance survives
// resolution. There is deliberately no retry and no backoff.
type LLMMatcher struct {
	provider  llm.Provider
	cfg       LLMMatcherConfig
	counter   tokenizer.Counter
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewLLMMatcher creates a completion-backed matcher.
func NewLLMMatcher(provider llm.Provider, cfg LLMMatcherConfig, logger *zap.Logger) *LLMMatcher {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMMatcher{
		provider: provider,
		cfg:      cfg,
		counter:  tokenizer.Default(),
		logger:   logger.With(zap.String("component", "llm_matcher")),
	}
}

// WithCollector attaches a metrics collector. Optional.
func (m *LLMMatcher) WithCollector(c *metrics.Collector) *LLMMatcher {
	m.collector = c
	return m
}

// Name returns "llm".
func (m *LLMMatcher) Name() string { return "llm" }

// Match renders the allocation prompt, sends it, and extracts a name
// from the response. Failures yield the fallback name, never an error.
func (m *LLMMatcher) Match(ctx context.Context, task types.TaskSpec, roster *Roster) (Choice, error) {
	if roster.Len() == 0 {
		return Choice{}, types.ErrEmptyRoster
	}

	prompt := BuildPrompt(task, roster)
	model := m.cfg.Model

	if tokens, err := m.counter.CountTokens(prompt); err == nil {
		m.logger.Debug("allocation prompt built",
			zap.String("task", task.ID),
			zap.Int("prompt_tokens", tokens))
		if m.collector != nil {
			m.collector.RecordPromptTokens(model, tokens)
		}
	}

	start := time.Now()
	resp, err := m.provider.Completion(ctx, &llm.CompletionRequest{
		Prompt:      prompt,
		Model:       model,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
	})
	if err != nil {
		m.recordRequest(model, "error", time.Since(start))
		m.logger.Warn("allocation completion failed, using fallback",
			zap.String("task", task.ID),
			zap.Error(err))
		return Choice{Name: m.cfg.FallbackName, FellBack: true}, nil
	}
	m.recordRequest(model, "ok", time.Since(start))

	name := ExtractName(resp.Text())
	if name == "" {
		m.logger.Warn("allocation completion was empty, using fallback",
			zap.String("task", task.ID))
		return Choice{Name: m.cfg.FallbackName, FellBack: true}, nil
	}
	return Choice{Name: name}, nil
}

func (m *LLMMatcher) recordRequest(model, status string, d time.Duration) {
	if m.collector != nil {
		m.collector.RecordLLMRequest(m.provider.Name(), model, status, d)
	}
}
