package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/resolvd/llm-governor/models"
	"github.com/resolvd/llm-governor/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 30 * time.Second
)

// defaultPricing is MicroUSD per million tokens, blended across prompt
// and completion.
var defaultPricing = map[string]models.MicroUSD{
	"gpt-4o":      7_500_000,
	"gpt-4o-mini": 375_000,
	"gpt-4-turbo": 20_000_000,
}

// Adapter implements the Provider interface for OpenAI
type Adapter struct {
	config    providers.Config
	transport providers.Transport
	pricing   map[string]models.MicroUSD
}

// New creates an OpenAI adapter using the injected transport
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
	return "openai"
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

// chatRequest is the OpenAI chat completions wire format
type chatRequest struct {
	Model     string              `json:"model"`
	Messages  []providers.Message `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete performs a chat completion request
func (a *Adapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResult, error) {
	if !a.Supports(req.Model) {
		return nil, providers.NewProviderError(a.Name(), "INVALID_MODEL",
			fmt.Sprintf("model %q not supported", req.Model), 400, nil)
	}

	payload, err := json.Marshal(chatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + a.config.APIKey,
	}
	for k, v := range a.config.Headers {
		headers[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	body, err := a.transport.Send(ctx, a.config.BaseURL+"/chat/completions", payload, headers)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "HTTP_ERROR", "request failed", 0, err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, providers.NewProviderError(a.Name(), "PARSE_ERROR", "failed to parse response", 0, err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), "EMPTY_RESPONSE", "no choices in response", 0, nil)
	}

	return &providers.CompletionResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
