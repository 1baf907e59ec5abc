package gateway

import (
	"github.com/resolvd/llm-governor/models"
	"github.com/resolvd/llm-governor/services/providers"
)

// ErrorKind identifies why a request was not served
type ErrorKind string

const (
	// ErrorKindRateLimited means the caller exceeded its admission
	// quota; no provider was contacted and no cost was incurred.
	ErrorKindRateLimited ErrorKind = "rate_limited"

	// ErrorKindBudgetExhausted means the daily spend cap is reached;
	// recoverable only after the ledger resets.
	ErrorKindBudgetExhausted ErrorKind = "budget_exhausted"

	// ErrorKindNoEligibleProvider means no candidate was even
	// attempted: either no provider supports the model, or every
	// supporting provider's breaker denied execution.
	ErrorKindNoEligibleProvider ErrorKind = "no_eligible_provider"

	// ErrorKindAllProvidersFailed means at least one candidate was
	// attempted and every attempt errored.
	ErrorKindAllProvidersFailed ErrorKind = "all_providers_failed"
)

// RequestEnvelope is the caller-supplied request. Never mutated after
// creation; the manager builds provider requests from it.
type RequestEnvelope struct {
	// Identity partitions rate limits (user id, API key, or tenant id)
	Identity string `json:"identity"`

	// Model is the target model identifier
	Model string `json:"model"`

	// Messages is the prompt payload in the unified shape
	Messages []providers.Message `json:"messages"`

	// MaxTokens optionally bounds the completion length
	MaxTokens int `json:"max_tokens,omitempty"`

	// CorrelationID ties logs, journal rows, and the response
	// together; generated when absent.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// ResponseEnvelope is the structured result every call receives,
// success or not.
type ResponseEnvelope struct {
	Success       bool            `json:"success"`
	Content       string          `json:"content,omitempty"`
	ErrorKind     ErrorKind       `json:"error_kind,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	TokensUsed    int             `json:"tokens_used"`
	Cost          models.MicroUSD `json:"cost_micro"`
	ProcessingMs  int64           `json:"processing_ms"`
	Provider      string          `json:"provider,omitempty"`
	CorrelationID string          `json:"correlation_id"`
}
