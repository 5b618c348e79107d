// Package assign implements task-to-agent assignment: rendering the
// allocation prompt, asking a matcher which agent should take a task,
// and resolving the answer back to an agent spec.
//
// Two matchers exist. LLMMatcher sends the prompt to a completion
// endpoint and extracts an agent name from the free-text response;
// any failure collapses to a configured fallback name so a live demo
// never crashes on a flaky local server. RuleMatcher is deterministic
// and has no external dependencies; tests and offline runs use it.
//
// The Resolver owns the unknown-name policy: an answer that matches
// no roster agent assigns the task to the default agent and marks the
// assignment as a fallback, rather than failing. Matcher answers carry
// their own fallback mark, so a substitute name that happens to be a
// valid roster entry still surfaces as a fallback.
package assign
