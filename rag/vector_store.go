package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// SearchResult pairs a stored document with its similarity score in
// [-1, 1]; higher is closer.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// VectorStore stores embedded documents and answers nearest-neighbor
// queries.
type VectorStore interface {
	// Add stores documents. Every document must carry an embedding.
	Add(ctx context.Context, docs ...Document) error
	// Search returns the topK most similar documents to the query vector.
	Search(ctx context.Context, query []float64, topK int) ([]SearchResult, error)
	// Delete removes documents by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids ...string) error
	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}

// InMemoryStore is a cosine-similarity VectorStore for small corpora.
// Safe for concurrent use.
type InMemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]Document
	order  []string
	logger *zap.Logger
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(logger *zap.Logger) *InMemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryStore{
		docs:   make(map[string]Document),
		logger: logger.With(zap.String("component", "vector_store")),
	}
}

// Add stores documents, replacing any with the same ID.
func (s *InMemoryStore) Add(_ context.Context, docs ...Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return fmt.Errorf("document %s has no embedding", doc.ID)
		}
		if _, exists := s.docs[doc.ID]; !exists {
			s.order = append(s.order, doc.ID)
		}
		s.docs[doc.ID] = doc
	}

	s.logger.Debug("documents stored",
		zap.Int("added", len(docs)),
		zap.Int("total", len(s.docs)))
	return nil
}

// Search scores every document against the query vector and returns
// the topK best. Ties keep insertion order.
func (s *InMemoryStore) Search(_ context.Context, query []float64, topK int) ([]SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if topK <= 0 {
		topK = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.docs))
	for _, id := range s.order {
		doc := s.docs[id]
		results = append(results, SearchResult{
			Document: doc,
			Score:    cosineSimilarity(query, doc.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes documents by ID.
func (s *InMemoryStore) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, exists := s.docs[id]; !exists {
			continue
		}
		delete(s.docs, id)
		for i, ordered := range s.order {
			if ordered == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Count returns the number of stored documents.
func (s *InMemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// cosineSimilarity returns 0 for mismatched or zero-length vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
