package providers

import (
	"context"
	"testing"

	"github.com/resolvd/llm-governor/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a minimal Provider for registry tests
type stubProvider struct {
	name     string
	priority int
	models   []string
}

func (p *stubProvider) Name() string  { return p.name }
func (p *stubProvider) Priority() int { return p.priority }

func (p *stubProvider) Supports(model string) bool {
	for _, m := range p.models {
		if m == model {
			return true
		}
	}
	return false
}

func (p *stubProvider) CalculateCost(tokens int, model string) (models.MicroUSD, error) {
	return models.CostForTokens(1_000_000, tokens), nil
}

func (p *stubProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	return &CompletionResult{Content: "ok"}, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(&stubProvider{name: "a", priority: 1}))
	assert.Equal(t, 1, r.Count())

	t.Run("rejects duplicates", func(t *testing.T) {
		err := r.Register(&stubProvider{name: "a", priority: 2})
		assert.ErrorIs(t, err, ErrProviderAlreadyRegistered)
	})

	t.Run("rejects nil", func(t *testing.T) {
		assert.Error(t, r.Register(nil))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		assert.Error(t, r.Register(&stubProvider{name: ""}))
	})
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	p := &stubProvider{name: "a", priority: 1}
	require.NoError(t, r.Register(p))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistry_CandidatesFor_PriorityOrder(t *testing.T) {
	r := NewRegistry()

	// Registered out of priority order on purpose
	require.NoError(t, r.Register(&stubProvider{name: "fallback", priority: 3, models: []string{"m1"}}))
	require.NoError(t, r.Register(&stubProvider{name: "primary", priority: 1, models: []string{"m1", "m2"}}))
	require.NoError(t, r.Register(&stubProvider{name: "secondary", priority: 2, models: []string{"m2"}}))

	t.Run("orders by ascending priority", func(t *testing.T) {
		candidates := r.CandidatesFor("m1")
		require.Len(t, candidates, 2)
		assert.Equal(t, "primary", candidates[0].Name())
		assert.Equal(t, "fallback", candidates[1].Name())
	})

	t.Run("filters by model support", func(t *testing.T) {
		candidates := r.CandidatesFor("m2")
		require.Len(t, candidates, 2)
		assert.Equal(t, "primary", candidates[0].Name())
		assert.Equal(t, "secondary", candidates[1].Name())
	})

	t.Run("empty for unsupported model", func(t *testing.T) {
		assert.Empty(t, r.CandidatesFor("nope"))
	})

	t.Run("names follow priority order", func(t *testing.T) {
		assert.Equal(t, []string{"primary", "secondary", "fallback"}, r.Names())
	})
}
