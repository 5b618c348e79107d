// Package types defines the core value types shared across crewkit:
// agent specifications, task specifications, assignments, and the
// sentinel errors the assignment layer reports.
//
// The types package is the lowest-level package with no internal
// dependencies, so every other package can import it without creating
// circular imports.
package types
