package types

// AgentSpec describes one role-labeled agent. Specs are created at
// configuration time and treated as immutable values afterwards; the
// Name is the unique key the assignment layer resolves against.
type AgentSpec struct {
	// Name uniquely identifies the agent within a roster.
	Name string `yaml:"name" json:"name"`
	// Role is a short human-readable role label ("Planner", "Coder").
	Role string `yaml:"role" json:"role"`
	// Goal states what the agent is for; it is quoted verbatim in
	// assignment prompts.
	Goal string `yaml:"goal" json:"goal"`
	// Backstory is optional flavor text injected into the agent's
	// system prompt when it executes a task.
	Backstory string `yaml:"backstory,omitempty" json:"backstory,omitempty"`
	// Model is the identifier of the model this agent runs on.
	Model string `yaml:"model" json:"model"`
}

// Valid reports whether the spec carries the minimum required fields.
func (a AgentSpec) Valid() bool {
	return a.Name != "" && a.Goal != ""
}

// Assignment pairs a task with the agent chosen to execute it.
// Assignments are not persisted by the assignment layer itself; they
// exist for the duration of one run (the optional store package records
// them separately).
type Assignment struct {
	Task  TaskSpec  `json:"task"`
	Agent AgentSpec `json:"agent"`
	// Matcher names the matcher implementation that produced this
	// assignment ("llm", "rule").
	Matcher string `json:"matcher"`
	// FellBack is true when the matcher could not produce a usable
	// agent name and the resolver substituted the default agent.
	FellBack bool `json:"fell_back"`
}
