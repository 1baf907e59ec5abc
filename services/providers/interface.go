package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/resolvd/llm-governor/models"
)

// Provider represents one upstream LLM vendor. One concrete type per
// upstream, selected at construction time via the ordered provider
// list; no runtime type inspection.
type Provider interface {
	// Name returns the provider name (e.g. "openrouter", "openai")
	Name() string

	// Priority orders failover; lower is tried first
	Priority() int

	// Supports reports whether the provider serves the model
	Supports(model string) bool

	// CalculateCost prices a token count for the model from the
	// provider's per-million-token table. Unknown models are an
	// error, never a silent zero.
	CalculateCost(tokens int, model string) (models.MicroUSD, error)

	// Complete performs a completion request against the upstream
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

// Transport is the injected capability used to reach an upstream.
// Adapters never open sockets themselves.
type Transport interface {
	Send(ctx context.Context, endpoint string, payload []byte, headers map[string]string) ([]byte, error)
}

// Message is a single conversation message in the unified shape
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the unified request handed to an adapter
type CompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// CompletionResult is the unified response parsed from an upstream
type CompletionResult struct {
	Content          string `json:"content"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// TotalTokens is the token count used for pricing
func (r *CompletionResult) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Config holds common construction-time configuration for adapters
type Config struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Priority for failover ordering; lower is tried first
	Priority int

	// Timeout bounds each upstream call
	Timeout time.Duration

	// Pricing overrides the adapter's default per-model rate table
	// (MicroUSD per million tokens)
	Pricing map[string]models.MicroUSD

	// Headers are added to every request
	Headers map[string]string
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the error code
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// HTTPTransport is the default Transport over net/http. The manager
// and adapters only see the Send capability, so tests substitute a
// fake without touching the network.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport with the given overall timeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
	}
}

// Send POSTs the payload to the endpoint and returns the raw body.
// Non-2xx statuses are returned as errors together with the body so
// adapters can surface upstream error messages.
func (t *HTTPTransport) Send(ctx context.Context, endpoint string, payload []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
