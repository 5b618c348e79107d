package assign

import (
	"fmt"
	"strings"

	"github.com/crewkit/crewkit/types"
)

// Roster is an ordered collection of agent specs. Order is the
// insertion order of the supplied specs; the assignment prompt
// enumerates agents in exactly this order.
type Roster struct {
	agents []types.AgentSpec
	index  map[string]int // lowercased name → position
}

// NewRoster builds a roster from specs, rejecting invalid specs and
// duplicate names (case-insensitive).
func NewRoster(specs ...types.AgentSpec) (*Roster, error) {
	r := &Roster{
		agents: make([]types.AgentSpec, 0, len(specs)),
		index:  make(map[string]int, len(specs)),
	}
	for _, spec := range specs {
		if !spec.Valid() {
			return nil, fmt.Errorf("agent %q needs a name and a goal", spec.Name)
		}
		key := strings.ToLower(spec.Name)
		if _, exists := r.index[key]; exists {
			return nil, fmt.Errorf("duplicate agent name %q", spec.Name)
		}
		r.index[key] = len(r.agents)
		r.agents = append(r.agents, spec)
	}
	return r, nil
}

// Len returns the number of agents.
func (r *Roster) Len() int { return len(r.agents) }

// Agents returns the specs in roster order. The slice is a copy.
func (r *Roster) Agents() []types.AgentSpec {
	out := make([]types.AgentSpec, len(r.agents))
	copy(out, r.agents)
	return out
}

// Names returns the agent names in roster order.
func (r *Roster) Names() []string {
	out := make([]string, len(r.agents))
	for i, a := range r.agents {
		out[i] = a.Name
	}
	return out
}

// Get resolves a name (case-insensitive) to its spec. Unknown names
// return an error wrapping types.ErrAgentNotFound.
func (r *Roster) Get(name string) (types.AgentSpec, error) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return types.AgentSpec{}, fmt.Errorf("%w: %q", types.ErrAgentNotFound, name)
	}
	return r.agents[i], nil
}

// Default returns the roster's default agent: the first entry.
func (r *Roster) Default() (types.AgentSpec, error) {
	if len(r.agents) == 0 {
		return types.AgentSpec{}, types.ErrEmptyRoster
	}
	return r.agents[0], nil
}
