// Package crew runs an ordered list of tasks through a roster of
// agents. Each task is resolved to an agent synchronously and then
// executed; a failing task is recorded in the run result and never
// aborts the run.
package crew
