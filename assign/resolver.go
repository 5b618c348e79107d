package assign

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/internal/metrics"
	"github.com/crewkit/crewkit/types"
)

// ResolverConfig configures the assignment resolver.
type ResolverConfig struct {
	// DefaultAgent receives tasks whose matched name does not resolve.
	// Empty means the roster's first entry.
	DefaultAgent string
}

// Resolver turns matcher answers into assignments. It owns the
// unknown-name policy: when the matched name is not in the roster, the
// task goes to the default agent and the assignment is marked as a
// fallback. Resolution is synchronous; callers process one task at a
// time.
type Resolver struct {
	roster    *Roster
	matcher   Matcher
	cfg       ResolverConfig
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewResolver creates a resolver over a roster and matcher.
func NewResolver(roster *Roster, matcher Matcher, cfg ResolverConfig, logger *zap.Logger) (*Resolver, error) {
	if roster == nil || roster.Len() == 0 {
		return nil, types.ErrEmptyRoster
	}
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if cfg.DefaultAgent != "" {
		if _, err := roster.Get(cfg.DefaultAgent); err != nil {
			return nil, fmt.Errorf("default agent: %w", err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		roster:  roster,
		matcher: matcher,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "resolver")),
	}, nil
}

// WithCollector attaches a metrics collector. Optional.
func (r *Resolver) WithCollector(c *metrics.Collector) *Resolver {
	r.collector = c
	return r
}

// Roster returns the roster the resolver assigns from.
func (r *Resolver) Roster() *Roster { return r.roster }

// Resolve assigns one task to an agent.
func (r *Resolver) Resolve(ctx context.Context, task types.TaskSpec) (types.Assignment, error) {
	task = task.Normalize()

	choice, err := r.matcher.Match(ctx, task, r.roster)
	if err != nil {
		return types.Assignment{}, fmt.Errorf("match task %s: %w", task.ID, err)
	}

	// A matcher-declared fallback stays a fallback even when its
	// substitute name resolves to a roster agent.
	assignment := types.Assignment{Task: task, Matcher: r.matcher.Name(), FellBack: choice.FellBack}
	outcome := metrics.OutcomeMatched
	if choice.FellBack {
		outcome = metrics.OutcomeFallback
	}

	agent, err := r.roster.Get(choice.Name)
	switch {
	case err == nil:
		assignment.Agent = agent
	case errors.Is(err, types.ErrAgentNotFound):
		def, derr := r.defaultAgent()
		if derr != nil {
			return types.Assignment{}, derr
		}
		if !choice.FellBack {
			r.logger.Warn("matched name not in roster, assigning default agent",
				zap.String("task", task.ID),
				zap.String("matched", choice.Name),
				zap.String("default", def.Name))
			outcome = metrics.OutcomeUnknownName
		}
		assignment.Agent = def
		assignment.FellBack = true
	default:
		return types.Assignment{}, err
	}

	if r.collector != nil {
		r.collector.RecordAssignment(assignment.Matcher, outcome)
	}

	r.logger.Info("task assigned",
		zap.String("task", task.ID),
		zap.String("agent", assignment.Agent.Name),
		zap.String("matcher", assignment.Matcher),
		zap.Bool("fell_back", assignment.FellBack))
	return assignment, nil
}

func (r *Resolver) defaultAgent() (types.AgentSpec, error) {
	if r.cfg.DefaultAgent != "" {
		return r.roster.Get(r.cfg.DefaultAgent)
	}
	return r.roster.Default()
}
