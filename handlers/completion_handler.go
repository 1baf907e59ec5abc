package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/resolvd/llm-governor/middleware"
	"github.com/resolvd/llm-governor/services/gateway"
	"github.com/resolvd/llm-governor/services/providers"
	"github.com/resolvd/llm-governor/utils"
	"go.uber.org/zap"
)

// CompletionRequest is the inbound payload for a governed completion
type CompletionRequest struct {
	Model     string        `json:"model" validate:"required"`
	Messages  []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	MaxTokens int           `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
}

// ChatMessage is a single conversation message
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// Dispatcher is the gateway capability the handler depends on
type Dispatcher interface {
	SendRequest(ctx context.Context, req *gateway.RequestEnvelope) *gateway.ResponseEnvelope
}

// CompletionHandler handles governed completion requests
type CompletionHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewCompletionHandler creates a new CompletionHandler
func NewCompletionHandler(dispatcher Dispatcher, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleCompletion handles POST /v1/completions
func (h *CompletionHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			_ = utils.WriteBadRequest(w, validationErr.Message, validationErr.Details())
			return
		}
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	messages := make([]providers.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = providers.Message{Role: m.Role, Content: m.Content}
	}

	envelope := &gateway.RequestEnvelope{
		Identity:      middleware.GetIdentityFromContext(r.Context()),
		Model:         req.Model,
		Messages:      messages,
		MaxTokens:     req.MaxTokens,
		CorrelationID: middleware.GetRequestIDFromContext(r.Context()),
	}

	resp := h.dispatcher.SendRequest(r.Context(), envelope)
	h.writeEnvelope(w, resp)
}

// writeEnvelope maps the response envelope to an HTTP status. The
// envelope itself is always the body, so callers see the same shape
// on every path.
func (h *CompletionHandler) writeEnvelope(w http.ResponseWriter, resp *gateway.ResponseEnvelope) {
	status := http.StatusOK
	if !resp.Success {
		switch resp.ErrorKind {
		case gateway.ErrorKindRateLimited:
			status = http.StatusTooManyRequests
		case gateway.ErrorKindBudgetExhausted:
			status = http.StatusPaymentRequired
		case gateway.ErrorKindNoEligibleProvider:
			status = http.StatusServiceUnavailable
		case gateway.ErrorKindAllProvidersFailed:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}

	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.logger.Error("failed to write completion response",
			zap.String("correlation_id", resp.CorrelationID),
			zap.Error(err))
	}
}
