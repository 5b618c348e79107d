// Package embedding turns text into vectors via a local
// OpenAI-compatible embeddings endpoint, with an optional
// cache-backed wrapper.
package embedding

import (
	"context"
	"time"
)

// Request asks for embeddings of one or more inputs.
type Request struct {
	// Input texts to embed, in order.
	Input []string `json:"input"`
	// Model overrides the provider's configured model.
	Model string `json:"model,omitempty"`
}

// Data is one embedding result.
type Data struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Usage reports token accounting when the endpoint provides it.
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response carries the embeddings for one request, in input order.
type Response struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Embeddings []Data    `json:"embeddings"`
	Usage      Usage     `json:"usage"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Provider is the contract for embedding backends.
type Provider interface {
	// Name returns the provider's identifier, used in errors and logs.
	Name() string
	// Dimensions returns the vector width the provider produces.
	Dimensions() int
	// MaxBatchSize returns the largest input slice one upstream call accepts.
	MaxBatchSize() int
	// Embed generates embeddings for the request's inputs.
	Embed(ctx context.Context, req *Request) (*Response, error)
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
	// EmbedDocuments embeds multiple documents, preserving order.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)
}
