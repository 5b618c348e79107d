package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crewkit/crewkit/llm/embedding"
)

// keywordEmbedder maps text onto a tiny vocabulary axis: one dimension
// per keyword, so retrieval behaves predictably in tests.
type keywordEmbedder struct {
	keywords []string
	err      error
}

func (e *keywordEmbedder) Name() string      { return "keyword" }
func (e *keywordEmbedder) Dimensions() int   { return len(e.keywords) }
func (e *keywordEmbedder) MaxBatchSize() int { return 64 }

func (e *keywordEmbedder) embed(text string) []float64 {
	vec := make([]float64, len(e.keywords))
	lower := strings.ToLower(text)
	for i, kw := range e.keywords {
		vec[i] = float64(strings.Count(lower, kw))
	}
	// Guarantee a nonzero vector so the store accepts it.
	vec = append(vec, 0.01)
	return vec
}

func (e *keywordEmbedder) Embed(context.Context, *embedding.Request) (*embedding.Response, error) {
	return nil, errors.New("unused in tests")
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, query string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.embed(query), nil
}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, documents []string) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, len(documents))
	for i, d := range documents {
		out[i] = e.embed(d)
	}
	return out, nil
}

func newTestRetriever(t *testing.T, embedder *keywordEmbedder, cfg RetrieverConfig) *Retriever {
	t.Helper()
	store := NewInMemoryStore(zaptest.NewLogger(t))
	splitter := NewSplitter(SplitterConfig{ChunkSize: 200, ChunkOverlap: 0})
	return NewRetriever(embedder, store, splitter, cfg, zaptest.NewLogger(t))
}

func TestRetriever_IndexAndRetrieve(t *testing.T) {
	embedder := &keywordEmbedder{keywords: []string{"redis", "login", "deploy"}}
	r := newTestRetriever(t, embedder, RetrieverConfig{TopK: 1})
	ctx := context.Background()

	text := "The cache layer uses redis with a 24h TTL.\n\n" +
		"The login flow redirects through the SSO gateway.\n\n" +
		"We deploy from main every Friday."
	n, err := r.Index(ctx, text, "runbook.md")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := r.Retrieve(ctx, "how does login work?")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Document.Content, "login flow")
	assert.Equal(t, "runbook.md", results[0].Document.Source)
}

func TestRetriever_Index_EmptyText(t *testing.T) {
	r := newTestRetriever(t, &keywordEmbedder{keywords: []string{"x"}}, RetrieverConfig{})

	n, err := r.Index(context.Background(), "  \n ", "empty.md")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRetriever_Index_EmbedderError(t *testing.T) {
	embedder := &keywordEmbedder{keywords: []string{"x"}, err: errors.New("embedder down")}
	r := newTestRetriever(t, embedder, RetrieverConfig{})

	_, err := r.Index(context.Background(), "some text", "notes.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.md")
}

func TestRetriever_MinScoreFilters(t *testing.T) {
	embedder := &keywordEmbedder{keywords: []string{"redis", "login"}}
	r := newTestRetriever(t, embedder, RetrieverConfig{TopK: 10, MinScore: 0.5})
	ctx := context.Background()

	_, err := r.Index(ctx, "redis redis redis.\n\nlogin page styling.", "notes.md")
	require.NoError(t, err)

	results, err := r.Retrieve(ctx, "redis outage")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Document.Content, "redis")
}

func TestRetriever_ContextBlock(t *testing.T) {
	embedder := &keywordEmbedder{keywords: []string{"redis"}}
	r := newTestRetriever(t, embedder, RetrieverConfig{TopK: 2})
	ctx := context.Background()

	_, err := r.Index(ctx, "redis runs on port 6379.", "notes.md")
	require.NoError(t, err)

	block, err := r.ContextBlock(ctx, "redis port")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(block, "Relevant notes:\n"))
	assert.Contains(t, block, "redis runs on port 6379.")
}

func TestRetriever_ContextBlock_NoDocuments(t *testing.T) {
	r := newTestRetriever(t, &keywordEmbedder{keywords: []string{"x"}}, RetrieverConfig{})

	block, err := r.ContextBlock(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, block)
}
