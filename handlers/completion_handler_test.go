package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/resolvd/llm-governor/middleware"
	"github.com/resolvd/llm-governor/services/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubDispatcher returns a scripted envelope and captures the request
type stubDispatcher struct {
	received *gateway.RequestEnvelope
	response *gateway.ResponseEnvelope
}

func (d *stubDispatcher) SendRequest(ctx context.Context, req *gateway.RequestEnvelope) *gateway.ResponseEnvelope {
	d.received = req
	return d.response
}

func postCompletion(t *testing.T, h *CompletionHandler, body, identity, requestID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/completions", strings.NewReader(body))
	ctx := req.Context()
	if identity != "" {
		ctx = middleware.WithIdentity(ctx, identity)
	}
	if requestID != "" {
		ctx = middleware.WithRequestID(ctx, requestID)
	}
	rec := httptest.NewRecorder()
	h.HandleCompletion(rec, req.WithContext(ctx))
	return rec
}

const validBody = `{
	"model": "gpt-4o",
	"messages": [{"role": "user", "content": "hello"}]
}`

func TestHandleCompletion_Success(t *testing.T) {
	dispatcher := &stubDispatcher{
		response: &gateway.ResponseEnvelope{
			Success:       true,
			Content:       "hi there",
			TokensUsed:    42,
			Provider:      "openai",
			CorrelationID: "corr-1",
		},
	}
	h := NewCompletionHandler(dispatcher, zap.NewNop())

	rec := postCompletion(t, h, validBody, "tenant-9", "req-7")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp gateway.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "hi there", resp.Content)

	t.Run("context flows into the envelope", func(t *testing.T) {
		require.NotNil(t, dispatcher.received)
		assert.Equal(t, "tenant-9", dispatcher.received.Identity)
		assert.Equal(t, "req-7", dispatcher.received.CorrelationID)
		assert.Equal(t, "gpt-4o", dispatcher.received.Model)
		require.Len(t, dispatcher.received.Messages, 1)
		assert.Equal(t, "user", dispatcher.received.Messages[0].Role)
	})
}

func TestHandleCompletion_StatusMapping(t *testing.T) {
	tests := []struct {
		kind   gateway.ErrorKind
		status int
	}{
		{gateway.ErrorKindRateLimited, http.StatusTooManyRequests},
		{gateway.ErrorKindBudgetExhausted, http.StatusPaymentRequired},
		{gateway.ErrorKindNoEligibleProvider, http.StatusServiceUnavailable},
		{gateway.ErrorKindAllProvidersFailed, http.StatusBadGateway},
		{gateway.ErrorKind("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			dispatcher := &stubDispatcher{
				response: &gateway.ResponseEnvelope{
					Success:       false,
					ErrorKind:     tt.kind,
					ErrorMessage:  "denied",
					CorrelationID: "corr-1",
				},
			}
			h := NewCompletionHandler(dispatcher, zap.NewNop())

			rec := postCompletion(t, h, validBody, "", "")
			assert.Equal(t, tt.status, rec.Code)

			// The envelope shape is stable across every status
			var resp gateway.ResponseEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.kind, resp.ErrorKind)
		})
	}
}

func TestHandleCompletion_InvalidJSON(t *testing.T) {
	dispatcher := &stubDispatcher{}
	h := NewCompletionHandler(dispatcher, zap.NewNop())

	rec := postCompletion(t, h, "{not json", "", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, dispatcher.received, "dispatcher must not be called")
}

func TestHandleCompletion_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing model", `{"messages": [{"role": "user", "content": "hi"}]}`},
		{"empty messages", `{"model": "gpt-4o", "messages": []}`},
		{"bad role", `{"model": "gpt-4o", "messages": [{"role": "robot", "content": "hi"}]}`},
		{"empty content", `{"model": "gpt-4o", "messages": [{"role": "user", "content": ""}]}`},
		{"negative max_tokens", `{"model": "gpt-4o", "messages": [{"role": "user", "content": "hi"}], "max_tokens": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := &stubDispatcher{}
			h := NewCompletionHandler(dispatcher, zap.NewNop())

			rec := postCompletion(t, h, tt.body, "", "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, dispatcher.received)
		})
	}
}
