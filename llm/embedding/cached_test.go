package embedding

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crewkit/crewkit/internal/cache"
)

// countingProvider embeds every input as [len(input[i])] and counts
// how many texts reached the upstream.
type countingProvider struct {
	embedded atomic.Int64
}

func (p *countingProvider) Name() string      { return "counting" }
func (p *countingProvider) Dimensions() int   { return 1 }
func (p *countingProvider) MaxBatchSize() int { return 100 }

func (p *countingProvider) Embed(_ context.Context, req *Request) (*Response, error) {
	p.embedded.Add(int64(len(req.Input)))
	resp := &Response{Provider: p.Name(), Model: req.Model}
	for i, text := range req.Input {
		resp.Embeddings = append(resp.Embeddings, Data{Index: i, Embedding: []float64{float64(len(text))}})
	}
	return resp, nil
}

func (p *countingProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	resp, err := p.Embed(ctx, &Request{Input: []string{query}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0].Embedding, nil
}

func (p *countingProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	resp, err := p.Embed(ctx, &Request{Input: documents})
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(resp.Embeddings))
	for i, d := range resp.Embeddings {
		out[i] = d.Embedding
	}
	return out, nil
}

func newTestCache(t *testing.T) *cache.Manager {
	t.Helper()
	mr := miniredis.RunT(t)
	m, err := cache.NewManager(cache.Config{Addr: mr.Addr()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCachedProvider_SecondCallHitsCache(t *testing.T) {
	inner := &countingProvider{}
	p := NewCached(inner, newTestCache(t), 0, zaptest.NewLogger(t))

	first, err := p.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)
	assert.EqualValues(t, 1, inner.embedded.Load())

	second, err := p.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.embedded.Load(), "second call must not reach upstream")
}

func TestCachedProvider_PartialHit(t *testing.T) {
	inner := &countingProvider{}
	p := NewCached(inner, newTestCache(t), 0, zaptest.NewLogger(t))

	_, err := p.EmbedDocuments(context.Background(), []string{"aa", "bbb"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.embedded.Load())

	vecs, err := p.EmbedDocuments(context.Background(), []string{"aa", "cccc", "bbb"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.EqualValues(t, 3, inner.embedded.Load(), "only the new text goes upstream")

	// Order is the input order, with cached and fresh vectors mixed.
	assert.Equal(t, []float64{2}, vecs[0])
	assert.Equal(t, []float64{4}, vecs[1])
	assert.Equal(t, []float64{3}, vecs[2])
}

func TestCachedProvider_KeyIncludesModel(t *testing.T) {
	inner := &countingProvider{}
	p := NewCached(inner, newTestCache(t), 0, zaptest.NewLogger(t))

	_, err := p.Embed(context.Background(), &Request{Input: []string{"same text"}, Model: "model-a"})
	require.NoError(t, err)
	_, err = p.Embed(context.Background(), &Request{Input: []string{"same text"}, Model: "model-b"})
	require.NoError(t, err)

	assert.EqualValues(t, 2, inner.embedded.Load(), "different models must not share vectors")
}

func TestCachedProvider_NilCacheDegradesToInner(t *testing.T) {
	inner := &countingProvider{}
	p := NewCached(inner, nil, 0, zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		_, err := p.EmbedQuery(context.Background(), "hello")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, inner.embedded.Load())
}

func TestCachedProvider_ForwardsMetadata(t *testing.T) {
	inner := &countingProvider{}
	p := NewCached(inner, newTestCache(t), 0, nil)

	assert.Equal(t, "counting", p.Name())
	assert.Equal(t, 1, p.Dimensions())
	assert.Equal(t, 100, p.MaxBatchSize())
}
