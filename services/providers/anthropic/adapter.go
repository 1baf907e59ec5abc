package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resolvd/llm-governor/models"
	"github.com/resolvd/llm-governor/services/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultTimeout   = 45 * time.Second
	anthropicVersion = "2023-06-01"

	// The messages API requires max_tokens; used when the caller
	// leaves it unset.
	defaultMaxTokens = 1024
)

// defaultPricing is MicroUSD per million tokens
var defaultPricing = map[string]models.MicroUSD{
	"claude-3-5-sonnet-20241022": 9_000_000,
	"claude-3-haiku-20240307":    750_000,
}

// Adapter implements the Provider interface for the Anthropic
// messages API
type Adapter struct {
	config    providers.Config
	transport providers.Transport
	pricing   map[string]models.MicroUSD
}

// New creates an Anthropic adapter using the injected transport
func New(config providers.Config, transport providers.Transport) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	pricing := defaultPricing
	if len(config.Pricing) > 0 {
		pricing = config.Pricing
	}

	return &Adapter{
		config:    config,
		transport: transport,
		pricing:   pricing,
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "anthropic"
}

// Priority returns the failover priority
func (a *Adapter) Priority() int {
	return a.config.Priority
}

// Supports reports whether the model is in the pricing table
func (a *Adapter) Supports(model string) bool {
	_, ok := a.pricing[model]
	return ok
}

// CalculateCost prices a token count against the model's
// per-million-token rate
func (a *Adapter) CalculateCost(tokens int, model string) (models.MicroUSD, error) {
	rate, ok := a.pricing[model]
	if !ok {
		return 0, providers.NewProviderError(a.Name(), "UNKNOWN_MODEL",
			fmt.Sprintf("no pricing for model %q", model), 0, nil)
	}
	return models.CostForTokens(rate, tokens), nil
}

// messagesRequest is the Anthropic messages API wire format. System
// prompts travel in a dedicated field, not the message list.
type messagesRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []providers.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete performs a messages API request
func (a *Adapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResult, error) {
	if !a.Supports(req.Model) {
		return nil, providers.NewProviderError(a.Name(), "INVALID_MODEL",
			fmt.Sprintf("model %q not supported", req.Model), 400, nil)
	}

	wireReq := messagesRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if wireReq.MaxTokens == 0 {
		wireReq.MaxTokens = defaultMaxTokens
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			wireReq.System = m.Content
			continue
		}
		wireReq.Messages = append(wireReq.Messages, m)
	}

	payload, err := json.Marshal(wireReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, err)
	}

	headers := map[string]string{
		"x-api-key":         a.config.APIKey,
		"anthropic-version": anthropicVersion,
	}
	for k, v := range a.config.Headers {
		headers[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	body, err := a.transport.Send(ctx, a.config.BaseURL+"/messages", payload, headers)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "HTTP_ERROR", "request failed", 0, err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(a.Name(), "PARSE_ERROR", "failed to parse response", 0, err)
	}
	if len(resp.Content) == 0 {
		return nil, providers.NewProviderError(a.Name(), "EMPTY_RESPONSE", "no content in response", 0, nil)
	}

	return &providers.CompletionResult{
		Content:          resp.Content[0].Text,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}, nil
}
