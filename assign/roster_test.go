package assign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewkit/types"
)

func testAgents() []types.AgentSpec {
	return []types.AgentSpec{
		{Name: "Planner", Role: "Planner", Goal: "Break work into ordered steps"},
		{Name: "Coder", Role: "Coder", Goal: "Implement features and fix bugs"},
		{Name: "Reviewer", Role: "Reviewer", Goal: "Review changes for defects"},
	}
}

func TestNewRoster(t *testing.T) {
	r, err := NewRoster(testAgents()...)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"Planner", "Coder", "Reviewer"}, r.Names())
}

func TestNewRoster_InvalidSpec(t *testing.T) {
	_, err := NewRoster(types.AgentSpec{Name: "NoGoal"})
	assert.Error(t, err)

	_, err = NewRoster(types.AgentSpec{Goal: "no name"})
	assert.Error(t, err)
}

func TestNewRoster_DuplicateName(t *testing.T) {
	_, err := NewRoster(
		types.AgentSpec{Name: "Planner", Goal: "plan"},
		types.AgentSpec{Name: "planner", Goal: "plan again"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRoster_Get(t *testing.T) {
	r, err := NewRoster(testAgents()...)
	require.NoError(t, err)

	agent, err := r.Get("Coder")
	require.NoError(t, err)
	assert.Equal(t, "Coder", agent.Name)

	// Case-insensitive, whitespace tolerated.
	agent, err = r.Get("  reviewer ")
	require.NoError(t, err)
	assert.Equal(t, "Reviewer", agent.Name)
}

func TestRoster_Get_Unknown(t *testing.T) {
	r, err := NewRoster(testAgents()...)
	require.NoError(t, err)

	_, err = r.Get("Designer")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAgentNotFound)
	assert.Contains(t, err.Error(), "Designer")
}

func TestRoster_Default(t *testing.T) {
	r, err := NewRoster(testAgents()...)
	require.NoError(t, err)

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "Planner", def.Name)

	empty := &Roster{}
	_, err = empty.Default()
	assert.ErrorIs(t, err, types.ErrEmptyRoster)
}

func TestRoster_AgentsIsCopy(t *testing.T) {
	r, err := NewRoster(testAgents()...)
	require.NoError(t, err)

	agents := r.Agents()
	agents[0].Name = "Mutated"

	again, err := r.Get("Planner")
	require.NoError(t, err)
	assert.Equal(t, "Planner", again.Name)
}
