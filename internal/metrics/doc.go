// Package metrics provides the Prometheus collector for completion,
// assignment, embedding, and cache instrumentation. Internal; not part
// of the public API.
package metrics
