package types

import "errors"

// Sentinel errors reported by the roster and resolver. Compare with
// errors.Is; lookup failures wrap ErrAgentNotFound together with the
// offending name.
var (
	// ErrAgentNotFound is returned when a name does not resolve to any
	// agent in the roster.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrEmptyRoster is returned when an operation requires at least
	// one registered agent.
	ErrEmptyRoster = errors.New("roster is empty")
)
