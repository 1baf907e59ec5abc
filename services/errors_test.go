package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NewDomainError(ErrorTypeRateLimit, "too many requests", nil)
		assert.Equal(t, "rate_limit: too many requests", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewDomainError(ErrorTypeExternal, "provider failed", cause)
		assert.Contains(t, err.Error(), "provider failed")
		assert.Contains(t, err.Error(), "boom")
		assert.Equal(t, cause, errors.Unwrap(err))
	})
}

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(ErrorTypeBudget, "cap reached", nil)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.NotErrorIs(t, err, ErrRateLimited)

	wrapped := fmt.Errorf("dispatch: %w", err)
	assert.ErrorIs(t, wrapped, ErrBudgetExhausted)
}

func TestErrorTypeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"rate limit", ErrRateLimited, IsRateLimitError},
		{"budget", ErrBudgetExhausted, IsBudgetError},
		{"external", ErrProviderError, IsExternalError},
		{"exhausted", ErrAllProvidersFailed, IsExhaustedError},
		{"validation", ErrUnknownModel, IsValidationError},
		{"internal", ErrInternal, IsInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeExhausted, GetErrorType(ErrNoEligibleProvider))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeRateLimit, "too many requests", nil).
		WithDetail("identity", "tenant-1").
		WithDetail("window", "60s")

	details := GetErrorDetails(err)
	assert.Equal(t, "tenant-1", details["identity"])
	assert.Equal(t, "60s", details["window"])
}
