// Package llm defines the text-completion provider contract and the
// unified error taxonomy used by everything that talks to a model
// endpoint.
//
// Concrete providers live under llm/providers; embedding providers
// live under llm/embedding. All of them surface failures as *llm.Error
// so callers can align HTTP status, retryability, and fallback policy
// without knowing which endpoint misbehaved.
package llm
