package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crewkit/crewkit/internal/tlsutil"
	"github.com/crewkit/crewkit/llm"
)

// LocalConfig configures the local embeddings provider.
type LocalConfig struct {
	// BaseURL of the local server (e.g. "http://localhost:11434").
	BaseURL string
	// Model is the embedding model identifier.
	Model string
	// Dimensions the model produces.
	Dimensions int
	// MaxBatch is the largest input slice sent in one upstream call.
	// Defaults to 32; local servers choke on large batches.
	MaxBatch int
	// Concurrency bounds parallel upstream calls when a request is
	// split into batches. Defaults to 4.
	Concurrency int
	// Timeout is the HTTP client timeout. Defaults to 60s.
	Timeout time.Duration
	// EmbeddingsPath defaults to "/v1/embeddings".
	EmbeddingsPath string
	// APIKey is sent as a bearer token when set. Local servers
	// usually need none.
	APIKey string
}

// LocalProvider embeds text through an OpenAI-compatible
// /v1/embeddings endpoint on a local server. Oversized inputs are
// split into batches and embedded concurrently, preserving order.
type LocalProvider struct {
	cfg    LocalConfig
	client *http.Client
	logger *zap.Logger
}

// NewLocal creates a provider with the given config.
func NewLocal(cfg LocalConfig, logger *zap.Logger) *LocalProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 768
	}
	if cfg.MaxBatch == 0 {
		cfg.MaxBatch = 32
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.EmbeddingsPath == "" {
		cfg.EmbeddingsPath = "/v1/embeddings"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalProvider{
		cfg:    cfg,
		client: tlsutil.SecureHTTPClient(cfg.Timeout),
		logger: logger.With(zap.String("provider", "local-embedding")),
	}
}

// Name returns the provider identifier.
func (p *LocalProvider) Name() string { return "local-embedding" }

// Dimensions returns the configured vector width.
func (p *LocalProvider) Dimensions() int { return p.cfg.Dimensions }

// MaxBatchSize returns the configured batch bound.
func (p *LocalProvider) MaxBatchSize() int { return p.cfg.MaxBatch }

type embedWire struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedWireResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates embeddings for the request's inputs. Requests larger
// than MaxBatch are split and run concurrently; results come back in
// input order.
func (p *LocalProvider) Embed(ctx context.Context, req *Request) (*Response, error) {
	if len(req.Input) == 0 {
		return nil, &llm.Error{
			Code: llm.ErrInvalidRequest, Message: "embedding request needs at least one input",
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	if len(req.Input) <= p.cfg.MaxBatch {
		return p.embedBatch(ctx, req.Input, model)
	}

	batches := splitBatches(req.Input, p.cfg.MaxBatch)
	responses := make([]*Response, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			resp, err := p.embedBatch(gctx, batch, model)
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Response{Provider: p.Name(), Model: model, CreatedAt: time.Now()}
	offset := 0
	for _, resp := range responses {
		for _, d := range resp.Embeddings {
			merged.Embeddings = append(merged.Embeddings, Data{
				Index:     offset + d.Index,
				Embedding: d.Embedding,
			})
		}
		offset += len(resp.Embeddings)
		merged.Usage.PromptTokens += resp.Usage.PromptTokens
		merged.Usage.TotalTokens += resp.Usage.TotalTokens
	}
	return merged, nil
}

func (p *LocalProvider) embedBatch(ctx context.Context, input []string, model string) (*Response, error) {
	payload, err := json.Marshal(embedWire{Input: input, Model: model})
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrInvalidRequest, Message: err.Error(),
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + p.cfg.EmbeddingsPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrInvalidRequest, Message: err.Error(),
			HTTPStatus: http.StatusBadRequest, Provider: p.Name(),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	start := time.Now()
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrProviderUnavailable, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, llm.MapHTTPError(httpResp.StatusCode, llm.ReadErrorMessage(httpResp.Body), p.Name())
	}

	var wire embedWireResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: fmt.Sprintf("decode embeddings response: %v", err),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}

	resp := &Response{
		Provider:   p.Name(),
		Model:      wire.Model,
		Embeddings: make([]Data, len(wire.Data)),
		Usage:      Usage{PromptTokens: wire.Usage.PromptTokens, TotalTokens: wire.Usage.TotalTokens},
		CreatedAt:  time.Now(),
	}
	if resp.Model == "" {
		resp.Model = model
	}
	for i, d := range wire.Data {
		resp.Embeddings[i] = Data{Index: d.Index, Embedding: d.Embedding}
	}

	p.logger.Debug("embedded batch",
		zap.Int("inputs", len(input)),
		zap.String("model", resp.Model),
		zap.Duration("latency", time.Since(start)))
	return resp, nil
}

// EmbedQuery embeds a single query string.
func (p *LocalProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	resp, err := p.Embed(ctx, &Request{Input: []string{query}})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, &llm.Error{
			Code: llm.ErrEmptyCompletion, Message: "no embeddings returned",
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	return resp.Embeddings[0].Embedding, nil
}

// EmbedDocuments embeds documents, preserving order.
func (p *LocalProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
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

func splitBatches(input []string, size int) [][]string {
	batches := make([][]string, 0, (len(input)+size-1)/size)
	for start := 0; start < len(input); start += size {
		end := start + size
		if end > len(input) {
			end = len(input)
		}
		batches = append(batches, input[start:end])
	}
	return batches
}
