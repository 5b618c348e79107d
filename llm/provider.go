package llm

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Unified error codes aligning HTTP status, retryability, and fallback
// policy across providers.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"
	ErrModelNotFound       ErrorCode = "LLM_MODEL_NOT_FOUND"
	ErrEmptyCompletion     ErrorCode = "LLM_EMPTY_COMPLETION"
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
)

// Error is the typed error every provider returns on failure.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// MapHTTPError maps an upstream HTTP status to a typed *Error.
func MapHTTPError(status int, msg, provider string) *Error {
	code := ErrUpstreamError
	retryable := status >= 500

	switch status {
	case http.StatusBadRequest:
		code = ErrInvalidRequest
	case http.StatusUnauthorized:
		code = ErrUnauthorized
	case http.StatusForbidden:
		code = ErrForbidden
	case http.StatusNotFound:
		code = ErrModelNotFound
	case http.StatusTooManyRequests:
		code = ErrRateLimited
		retryable = true
	case http.StatusGatewayTimeout:
		code = ErrUpstreamTimeout
		retryable = true
	}

	return &Error{
		Code:       code,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  retryable,
		Provider:   provider,
	}
}

// ReadErrorMessage extracts a short error message from an upstream
// response body, bounded so a misbehaving server cannot flood logs.
func ReadErrorMessage(body io.Reader) string {
	const maxLen = 2048
	data, err := io.ReadAll(io.LimitReader(body, maxLen))
	if err != nil || len(data) == 0 {
		return "upstream error (no body)"
	}
	return string(data)
}

// CompletionRequest is the body sent to a text-completion endpoint.
// The wire shape is the legacy-completions form local servers expose:
// {"prompt": ..., "model": ...} with optional sampling knobs.
type CompletionRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float32  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// CompletionChoice is one generated alternative.
type CompletionChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Usage reports token accounting when the endpoint provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the decoded completion result.
type CompletionResponse struct {
	ID        string             `json:"id"`
	Provider  string             `json:"provider"`
	Model     string             `json:"model"`
	Choices   []CompletionChoice `json:"choices"`
	Usage     Usage              `json:"usage"`
	CreatedAt time.Time          `json:"created_at"`
}

// Text returns the first choice's text, or "" when the response is empty.
func (r *CompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Text
}

// Model describes one model the endpoint serves.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// HealthStatus is the result of a provider health probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider is the contract for text-completion backends.
type Provider interface {
	// Name returns the provider's identifier, used in errors and logs.
	Name() string
	// Completion sends a prompt and returns the generated text.
	Completion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}

// ChooseModel picks the request model, then the default, then the fallback.
func ChooseModel(reqModel, defaultModel, fallback string) string {
	if reqModel != "" {
		return reqModel
	}
	if defaultModel != "" {
		return defaultModel
	}
	return fallback
}
