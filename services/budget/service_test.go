package budget

import (
	"sync"
	"testing"

	"github.com/resolvd/llm-governor/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestService_TrackRequest_Accumulates(t *testing.T) {
	s := NewService(models.MicroUSDFromFloat(100), zap.NewNop())

	s.TrackRequest(models.MicroUSDFromFloat(1.25))
	s.TrackRequest(models.MicroUSDFromFloat(0.000001))
	s.TrackRequest(models.MicroUSDFromFloat(2.5))

	m := s.Metrics()
	assert.Equal(t, models.MicroUSD(3_750_001), m.TotalCost)
	assert.Equal(t, int64(3), m.RequestCount)
}

func TestService_TrackRequest_ExactOverManySmallCosts(t *testing.T) {
	// Summing a million micro-cent costs must reproduce the exact
	// total; float64 accumulation would drift at this scale.
	s := NewService(models.MicroUSDFromFloat(1000), zap.NewNop())

	for i := 0; i < 1_000_000; i++ {
		s.TrackRequest(models.MicroUSD(3)) // 0.000003 USD
	}

	assert.Equal(t, models.MicroUSD(3_000_000), s.Metrics().TotalCost)
	assert.Equal(t, "3.000000", s.Metrics().TotalCost.String())
}

func TestService_IsWithinDailyLimit(t *testing.T) {
	t.Run("fresh ledger is within limit", func(t *testing.T) {
		s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())
		assert.True(t, s.IsWithinDailyLimit())
	})

	t.Run("strict inequality at the limit", func(t *testing.T) {
		s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())
		s.TrackRequest(models.MicroUSDFromFloat(10))
		assert.False(t, s.IsWithinDailyLimit())
	})

	t.Run("just under the limit", func(t *testing.T) {
		s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())
		s.TrackRequest(models.MicroUSD(9_999_999))
		assert.True(t, s.IsWithinDailyLimit())
	})

	t.Run("zero limit is always exhausted", func(t *testing.T) {
		s := NewService(0, zap.NewNop())
		assert.False(t, s.IsWithinDailyLimit())

		s.TrackRequest(0)
		assert.False(t, s.IsWithinDailyLimit())
	})

	t.Run("negative limit is always exhausted", func(t *testing.T) {
		s := NewService(models.MicroUSDFromFloat(-5), zap.NewNop())
		assert.False(t, s.IsWithinDailyLimit())
	})
}

func TestService_LimitSequence(t *testing.T) {
	// 9.99 then 0.009 then 0.001 against a 10.00 cap: within, within,
	// then exhausted with zero remaining.
	s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())

	s.TrackRequest(models.MicroUSDFromFloat(9.99))
	assert.True(t, s.IsWithinDailyLimit())

	s.TrackRequest(models.MicroUSDFromFloat(0.009))
	assert.True(t, s.IsWithinDailyLimit())

	s.TrackRequest(models.MicroUSDFromFloat(0.001))
	assert.False(t, s.IsWithinDailyLimit())
	assert.Equal(t, models.MicroUSD(0), s.Metrics().RemainingBudget)
}

func TestService_Metrics_RemainingClampedAtZero(t *testing.T) {
	s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())

	// A request admitted just before the cap may overshoot it; the
	// reported remaining budget must not go negative.
	s.TrackRequest(models.MicroUSDFromFloat(12))

	m := s.Metrics()
	assert.Equal(t, models.MicroUSD(12_000_000), m.TotalCost)
	assert.Equal(t, models.MicroUSD(0), m.RemainingBudget)
}

func TestService_TrackRequest_IgnoresNegativeCost(t *testing.T) {
	s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())

	s.TrackRequest(models.MicroUSD(-500))

	m := s.Metrics()
	assert.Equal(t, models.MicroUSD(0), m.TotalCost)
	assert.Equal(t, int64(1), m.RequestCount)
}

func TestService_Reset(t *testing.T) {
	s := NewService(models.MicroUSDFromFloat(10), zap.NewNop())

	s.TrackRequest(models.MicroUSDFromFloat(10))
	assert.False(t, s.IsWithinDailyLimit())

	s.Reset()

	m := s.Metrics()
	assert.Equal(t, models.MicroUSD(0), m.TotalCost)
	assert.Equal(t, int64(0), m.RequestCount)
	assert.True(t, s.IsWithinDailyLimit())
}

func TestService_ConcurrentTracking(t *testing.T) {
	s := NewService(models.MicroUSDFromFloat(1000), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.TrackRequest(models.MicroUSD(7))
			}
		}()
	}
	wg.Wait()

	m := s.Metrics()
	assert.Equal(t, models.MicroUSD(700_000), m.TotalCost)
	assert.Equal(t, int64(100_000), m.RequestCount)
}
