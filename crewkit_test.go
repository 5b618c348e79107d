package crewkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crewkit/crewkit/types"
)

func demoAgents() []types.AgentSpec {
	return []types.AgentSpec{
		{Name: "Planner", Role: "Planner", Goal: "Break work into ordered steps"},
		{Name: "Coder", Role: "Coder", Goal: "Implement features and fix bugs"},
	}
}

func TestNew_RequiresAgents(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WithAgents")
}

func TestNew_RuleMatcher(t *testing.T) {
	r, err := New(
		WithAgents(demoAgents()...),
		WithRuleMatcher(),
		WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	a, err := r.Resolve(context.Background(), types.TaskSpec{
		Description: "implement features and fix bugs in the parser",
		Type:        "code",
	})
	require.NoError(t, err)
	assert.Equal(t, "Coder", a.Agent.Name)
	assert.Equal(t, "rule", a.Matcher)
}

func TestNew_InvalidDefaultAgent(t *testing.T) {
	_, err := New(
		WithAgents(demoAgents()...),
		WithRuleMatcher(),
		WithDefaultAgent("Ghost"),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAgentNotFound)
}

func TestNew_InvalidRoster(t *testing.T) {
	_, err := New(WithAgents(types.AgentSpec{Name: "NoGoal"}))
	assert.Error(t, err)
}
