package types

import "github.com/google/uuid"

// Complexity bounds for TaskSpec. Values outside the range are clamped
// by Normalize rather than rejected.
const (
	MinComplexity = 1
	MaxComplexity = 5
)

// TaskSpec describes one unit of work to be assigned to an agent.
// Immutable once defined.
type TaskSpec struct {
	// ID identifies the task. Normalize generates one when empty.
	ID string `yaml:"id,omitempty" json:"id"`
	// Description is the natural-language statement of the work.
	Description string `yaml:"description" json:"description"`
	// Type is a free-form task-type label ("plan", "code", "review").
	Type string `yaml:"type" json:"type"`
	// Complexity is an integer difficulty score in [MinComplexity, MaxComplexity].
	Complexity int `yaml:"complexity" json:"complexity"`
}

// Normalize returns a copy with a generated ID when missing and the
// complexity clamped into the valid range.
func (t TaskSpec) Normalize() TaskSpec {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Complexity < MinComplexity {
		t.Complexity = MinComplexity
	}
	if t.Complexity > MaxComplexity {
		t.Complexity = MaxComplexity
	}
	return t
}
