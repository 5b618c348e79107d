package assign

import (
	"context"
	"strings"

	"github.com/crewkit/crewkit/types"
)

// Choice is a matcher's answer for one task. Name is advisory: the
// Resolver validates it against the roster. FellBack marks an answer
// that did not come from an actual decision, so fallback provenance
// survives even when the substitute name resolves to a roster agent.
type Choice struct {
	Name     string
	FellBack bool
}

// Matcher answers the question "which agent should take this task?"
// with an agent name. The returned name is advisory: the Resolver
// validates it against the roster and applies the fallback policy.
type Matcher interface {
	// Name identifies the matcher in assignments, logs, and metrics.
	Name() string
	// Match returns an agent name for the task.
	Match(ctx context.Context, task types.TaskSpec, roster *Roster) (Choice, error)
}

// RuleMatcher picks agents deterministically by token overlap between
// the task's type and description and each agent's role and goal.
// Ties and zero scores go to the earliest roster entry, so identical
// inputs always select the same agent. No network, no model.
type RuleMatcher struct{}

// NewRuleMatcher creates a rule-based matcher.
func NewRuleMatcher() *RuleMatcher { return &RuleMatcher{} }

// Name returns "rule".
func (m *RuleMatcher) Name() string { return "rule" }

// Match scores every roster agent and returns the best name.
func (m *RuleMatcher) Match(_ context.Context, task types.TaskSpec, roster *Roster) (Choice, error) {
	if roster.Len() == 0 {
		return Choice{}, types.ErrEmptyRoster
	}

	taskTokens := tokenize(task.Type + " " + task.Description)

	best := 0
	bestScore := -1
	for i, agent := range roster.Agents() {
		score := overlap(taskTokens, tokenize(agent.Role+" "+agent.Goal))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return Choice{Name: roster.Agents()[best].Name}, nil
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,:;!?()[]\"'")
		if len(f) > 2 { // skip stopword-sized noise
			tokens[f] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}
