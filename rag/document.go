package rag

import "github.com/google/uuid"

// Document is one indexed text unit, usually a chunk of a larger
// source file.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Source    string            `json:"source,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"embedding,omitempty"`
}

// NewDocument creates a document with a generated ID.
func NewDocument(content, source string) Document {
	return Document{
		ID:      uuid.NewString(),
		Content: content,
		Source:  source,
	}
}
