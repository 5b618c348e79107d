package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/crewkit/crewkit/internal/cache"
	"github.com/crewkit/crewkit/internal/metrics"
)

// CachedProvider wraps a Provider with a redis-backed vector cache.
// Keys are derived from the model and a content hash, so identical
// text embedded twice costs one upstream call. Cache failures degrade
// to the inner provider; they are logged, never surfaced.
type CachedProvider struct {
	inner     Provider
	cache     *cache.Manager
	ttl       time.Duration
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewCached wraps a provider. A zero ttl uses the cache's default.
func NewCached(inner Provider, c *cache.Manager, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "embedding_cache")),
	}
}

// WithCollector attaches a metrics collector. Optional.
func (p *CachedProvider) WithCollector(c *metrics.Collector) *CachedProvider {
	p.collector = c
	return p
}

// Name returns the inner provider's identifier.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Dimensions returns the inner provider's vector width.
func (p *CachedProvider) Dimensions() int { return p.inner.Dimensions() }

// MaxBatchSize returns the inner provider's batch bound.
func (p *CachedProvider) MaxBatchSize() int { return p.inner.MaxBatchSize() }

// Embed serves cached vectors where possible and embeds the rest
// through the inner provider in one call.
func (p *CachedProvider) Embed(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model

	vectors := make([][]float64, len(req.Input))
	missing := make([]int, 0, len(req.Input))
	for i, text := range req.Input {
		if vec, ok := p.lookup(ctx, model, text); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		input := make([]string, len(missing))
		for j, i := range missing {
			input[j] = req.Input[i]
		}
		resp, err := p.inner.Embed(ctx, &Request{Input: input, Model: model})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(missing) {
			return nil, fmt.Errorf("embedding count mismatch: asked %d, got %d", len(missing), len(resp.Embeddings))
		}
		for j, d := range resp.Embeddings {
			i := missing[j]
			vectors[i] = d.Embedding
			p.store(ctx, model, req.Input[i], d.Embedding)
		}
		if p.collector != nil {
			p.collector.RecordEmbeddings(len(missing))
		}
	}

	out := &Response{
		Provider:   p.Name(),
		Model:      model,
		Embeddings: make([]Data, len(vectors)),
		CreatedAt:  time.Now(),
	}
	for i, vec := range vectors {
		out.Embeddings[i] = Data{Index: i, Embedding: vec}
	}
	return out, nil
}

// EmbedQuery embeds a single query string through the cache.
func (p *CachedProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	resp, err := p.Embed(ctx, &Request{Input: []string{query}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedDocuments embeds documents through the cache, preserving order.
func (p *CachedProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
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

func (p *CachedProvider) lookup(ctx context.Context, model, text string) ([]float64, bool) {
	if p.cache == nil {
		return nil, false
	}
	var vec []float64
	err := p.cache.GetJSON(ctx, p.key(model, text), &vec)
	switch {
	case err == nil:
		if p.collector != nil {
			p.collector.RecordCacheHit()
		}
		return vec, true
	case cache.IsCacheMiss(err):
	default:
		p.logger.Warn("embedding cache lookup failed", zap.Error(err))
	}
	if p.collector != nil {
		p.collector.RecordCacheMiss()
	}
	return nil, false
}

func (p *CachedProvider) store(ctx context.Context, model, text string, vec []float64) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetJSON(ctx, p.key(model, text), vec, p.ttl); err != nil {
		p.logger.Warn("embedding cache store failed", zap.Error(err))
	}
}

func (p *CachedProvider) key(model, text string) string {
	if model == "" {
		model = p.inner.Name()
	}
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + hex.EncodeToString(sum[:])
}
