package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crewkit/crewkit/internal/tlsutil"
	"github.com/crewkit/crewkit/llm"
)

// Config holds the settings for a local Ollama-compatible provider.
type Config struct {
	// BaseURL of the local server (e.g. "http://localhost:11434").
	BaseURL string

	// DefaultModel is used when the request does not name a model.
	DefaultModel string

	// FallbackModel is used when both request and DefaultModel are empty.
	FallbackModel string

	// Timeout is the HTTP client timeout. Defaults to 120s; small local
	// models routinely take a minute on CPU-only machines.
	Timeout time.Duration

	// CompletionsPath defaults to "/v1/completions".
	CompletionsPath string

	// ModelsPath defaults to "/v1/models".
	ModelsPath string

	// PullPath defaults to "/api/pull".
	PullPath string

	// RequestsPerSecond caps the outbound request rate. Zero disables
	// limiting. Local servers queue badly under burst load.
	RequestsPerSecond float64

	// APIKey is optional; Ollama ignores it but proxies in front of it
	// may not.
	APIKey string
}

// Provider talks to one local Ollama-compatible server.
type Provider struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates a provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.CompletionsPath == "" {
		cfg.CompletionsPath = "/v1/completions"
	}
	if cfg.ModelsPath == "" {
		cfg.ModelsPath = "/v1/models"
	}
	if cfg.PullPath == "" {
		cfg.PullPath = "/api/pull"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Provider{
		cfg:     cfg,
		client:  tlsutil.SecureHTTPClient(cfg.Timeout),
		logger:  logger.With(zap.String("provider", "ollama")),
		limiter: limiter,
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "ollama" }

func (p *Provider) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
}

func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Completion sends a legacy-completions request and decodes the result.
func (p *Provider) Completion(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := p.wait(ctx); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamTimeout, Message: err.Error(),
			HTTPStatus: http.StatusGatewayTimeout, Retryable: true, Provider: p.Name(),
		}
	}

	body := *req
	body.Model = llm.ChooseModel(req.Model, p.cfg.DefaultModel, p.cfg.FallbackModel)

	payload, err := json.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.cfg.CompletionsPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := llm.ReadErrorMessage(resp.Body)
		return nil, llm.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var wire completionWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}

	result := wire.toResponse(p.Name())
	p.logger.Debug("completion finished",
		zap.String("model", body.Model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("total_tokens", result.Usage.TotalTokens))
	return result, nil
}

// completionWire is the raw /v1/completions response shape.
type completionWire struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int    `json:"index"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

func (w completionWire) toResponse(provider string) *llm.CompletionResponse {
	out := &llm.CompletionResponse{
		ID:       w.ID,
		Provider: provider,
		Model:    w.Model,
		Choices:  make([]llm.CompletionChoice, 0, len(w.Choices)),
		Usage:    w.Usage,
	}
	for _, c := range w.Choices {
		out.Choices = append(out.Choices, llm.CompletionChoice{
			Index: c.Index, Text: c.Text, FinishReason: c.FinishReason,
		})
	}
	if w.Created != 0 {
		out.CreatedAt = time.Unix(w.Created, 0)
	}
	return out
}

// HealthCheck verifies the server is reachable via the models endpoint.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.cfg.ModelsPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := llm.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("ollama health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// ListModels returns the models the server currently serves.
func (p *Provider) ListModels(ctx context.Context) ([]llm.Model, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.cfg.ModelsPath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := llm.ReadErrorMessage(resp.Body)
		return nil, llm.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var wire struct {
		Data []llm.Model `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}
	return wire.Data, nil
}

// PullProgress is one NDJSON progress line from /api/pull.
type PullProgress struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// Pull downloads a model on the server, logging streamed progress.
// It blocks until the server reports success or the stream ends.
func (p *Provider) Pull(ctx context.Context, model string) error {
	if model == "" {
		return fmt.Errorf("model name is required")
	}

	payload, err := json.Marshal(map[string]any{"name": model, "stream": true})
	if err != nil {
		return fmt.Errorf("failed to marshal pull request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.cfg.PullPath), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	// Pulls can run far past the completion timeout; use a client
	// without one and rely on ctx.
	client := &http.Client{Transport: tlsutil.SecureTransport()}
	resp, err := client.Do(httpReq)
	if err != nil {
		return &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := llm.ReadErrorMessage(resp.Body)
		return llm.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lastStatus := ""
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var prog PullProgress
		if err := json.Unmarshal(line, &prog); err != nil {
			continue // tolerate partial/garbled progress lines
		}
		if prog.Status != lastStatus {
			p.logger.Info("model pull progress",
				zap.String("model", model),
				zap.String("status", prog.Status))
			lastStatus = prog.Status
		}
		if prog.Status == "success" {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("pull stream interrupted: %w", err)
	}
	return nil
}
