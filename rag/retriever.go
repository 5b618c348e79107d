package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/llm/embedding"
)

// RetrieverConfig controls retrieval behavior.
type RetrieverConfig struct {
	// TopK documents per query. Defaults to 4.
	TopK int `yaml:"top_k" json:"top_k"`
	// MinScore drops results below this similarity. Zero keeps all.
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// Retriever embeds queries and documents through one provider and
// searches a vector store.
type Retriever struct {
	embedder embedding.Provider
	store    VectorStore
	splitter *Splitter
	cfg      RetrieverConfig
	logger   *zap.Logger
}

// NewRetriever wires an embedder, store, and splitter together.
func NewRetriever(embedder embedding.Provider, store VectorStore, splitter *Splitter, cfg RetrieverConfig, logger *zap.Logger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if splitter == nil {
		splitter = NewSplitter(DefaultSplitterConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "retriever")),
	}
}

// Index splits source text into chunks, embeds them, and stores them.
// It returns the number of chunks indexed.
func (r *Retriever) Index(ctx context.Context, text, source string) (int, error) {
	docs := r.splitter.Split(text, source)
	if len(docs) == 0 {
		return 0, nil
	}

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
	}

	vectors, err := r.embedder.EmbedDocuments(ctx, contents)
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks from %s: %w", len(docs), source, err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(docs), len(vectors))
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	if err := r.store.Add(ctx, docs...); err != nil {
		return 0, err
	}

	r.logger.Info("indexed source",
		zap.String("source", source),
		zap.Int("chunks", len(docs)))
	return len(docs), nil
}

// Retrieve returns the most similar documents to the query.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]SearchResult, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vec, r.cfg.TopK)
	if err != nil {
		return nil, err
	}

	if r.cfg.MinScore > 0 {
		kept := results[:0]
		for _, res := range results {
			if res.Score >= r.cfg.MinScore {
				kept = append(kept, res)
			}
		}
		results = kept
	}
	return results, nil
}

// ContextBlock retrieves for the query and renders the hits as a
// plain-text block suitable for prepending to a prompt. An empty
// string means nothing relevant was found.
func (r *Retriever) ContextBlock(ctx context.Context, query string) (string, error) {
	results, err := r.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Relevant notes:\n")
	for _, res := range results {
		fmt.Fprintf(&b, "---\n%s\n", strings.TrimSpace(res.Document.Content))
	}
	b.WriteString("---\n")
	return b.String(), nil
}
