// Package crewkit provides a top-level convenience entry point for
// assigning tasks to agents with minimal boilerplate.
//
// Usage:
//
//	import "github.com/crewkit/crewkit"
//
//	r, err := crewkit.New(
//		crewkit.WithAgents(planner, coder, reviewer),
//		crewkit.WithModel("qwen2:0.5b"),
//	)
//	a, err := r.Resolve(ctx, task)
//
// This wires an Ollama-backed LLM matcher and a resolver with library
// defaults. Applications that need the full stack (crews, retrieval,
// history) should assemble the packages directly.
package crewkit

import (
	"errors"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/assign"
	"github.com/crewkit/crewkit/llm"
	"github.com/crewkit/crewkit/llm/providers/ollama"
	"github.com/crewkit/crewkit/types"
)

type options struct {
	agents       []types.AgentSpec
	baseURL      string
	model        string
	defaultAgent string
	ruleMatcher  bool
	provider     llm.Provider
	logger       *zap.Logger
}

// Option configures the resolver created by [New].
type Option func(*options)

// WithAgents sets the roster, in assignment-prompt order.
func WithAgents(agents ...types.AgentSpec) Option {
	return func(o *options) { o.agents = append(o.agents, agents...) }
}

// WithBaseURL points the completion provider at a non-default server.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithModel sets the model used for assignment completions.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithDefaultAgent names the agent that receives unresolvable tasks.
func WithDefaultAgent(name string) Option {
	return func(o *options) { o.defaultAgent = name }
}

// WithRuleMatcher swaps the LLM matcher for the deterministic
// token-overlap matcher. No server is contacted.
func WithRuleMatcher() Option {
	return func(o *options) { o.ruleMatcher = true }
}

// WithProvider sets a pre-built completion provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an [assign.Resolver] with minimal configuration. At
// minimum, a roster must be supplied via [WithAgents].
func New(opts ...Option) (*assign.Resolver, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.agents) == 0 {
		return nil, errors.New("crewkit: at least one agent is required, use WithAgents")
	}

	roster, err := assign.NewRoster(o.agents...)
	if err != nil {
		return nil, err
	}

	var matcher assign.Matcher
	if o.ruleMatcher {
		matcher = assign.NewRuleMatcher()
	} else {
		provider := o.provider
		if provider == nil {
			provider = ollama.New(ollama.Config{BaseURL: o.baseURL, DefaultModel: o.model}, o.logger)
		}
		matcher = assign.NewLLMMatcher(provider, assign.LLMMatcherConfig{
			Model:        o.model,
			FallbackName: o.defaultAgent,
		}, o.logger)
	}

	return assign.NewResolver(roster, matcher,
		assign.ResolverConfig{DefaultAgent: o.defaultAgent}, o.logger)
}
