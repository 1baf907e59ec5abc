package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMicroUSDFromFloat(t *testing.T) {
	t.Run("whole dollars", func(t *testing.T) {
		assert.Equal(t, MicroUSD(10_000_000), MicroUSDFromFloat(10.0))
	})

	t.Run("fractional cents", func(t *testing.T) {
		assert.Equal(t, MicroUSD(9_990_000), MicroUSDFromFloat(9.99))
		assert.Equal(t, MicroUSD(9_000), MicroUSDFromFloat(0.009))
		assert.Equal(t, MicroUSD(1_000), MicroUSDFromFloat(0.001))
	})

	t.Run("rounds to nearest micro", func(t *testing.T) {
		assert.Equal(t, MicroUSD(1), MicroUSDFromFloat(0.0000014))
		assert.Equal(t, MicroUSD(2), MicroUSDFromFloat(0.0000016))
	})
}

func TestMicroUSD_String(t *testing.T) {
	assert.Equal(t, "10.000000", MicroUSD(10_000_000).String())
	assert.Equal(t, "0.011106", MicroUSD(11_106).String())
	assert.Equal(t, "0.000000", MicroUSD(0).String())
	assert.Equal(t, "-0.500000", MicroUSD(-500_000).String())
}

func TestMicroUSD_Dollars(t *testing.T) {
	assert.InDelta(t, 1.5, MicroUSD(1_500_000).Dollars(), 1e-9)
}

func TestCostForTokens(t *testing.T) {
	t.Run("scales linearly", func(t *testing.T) {
		// 9 USD per million tokens, 1234 tokens -> 0.011106 USD
		rate := MicroUSD(9_000_000)
		assert.Equal(t, MicroUSD(11_106), CostForTokens(rate, 1234))
	})

	t.Run("zero tokens cost nothing", func(t *testing.T) {
		assert.Equal(t, MicroUSD(0), CostForTokens(MicroUSD(9_000_000), 0))
	})

	t.Run("huge token counts do not overflow", func(t *testing.T) {
		// A trillion tokens at 20 USD per million is 20M USD; the naive
		// tokens*rate product would exceed int64 long before that.
		rate := MicroUSD(20_000_000)
		assert.Equal(t, MicroUSD(20_000_000_000_000), CostForTokens(rate, 1_000_000_000_000))
	})

	t.Run("remainder still priced at huge counts", func(t *testing.T) {
		rate := MicroUSD(9_000_000)
		// 1e12 + 1234 tokens: whole-million part plus the fractional tail
		want := MicroUSD(9_000_000_000_000) + MicroUSD(11_106)
		assert.Equal(t, want, CostForTokens(rate, 1_000_000_001_234))
	})

	t.Run("negative tokens cost nothing", func(t *testing.T) {
		assert.Equal(t, MicroUSD(0), CostForTokens(MicroUSD(9_000_000), -5))
	})

	t.Run("exact accumulation", func(t *testing.T) {
		// Summing a million small costs must equal one big cost,
		// which float64 accumulation would not guarantee.
		rate := MicroUSD(750_000)
		var sum MicroUSD
		for i := 0; i < 1_000_000; i++ {
			sum += CostForTokens(rate, 4)
		}
		assert.Equal(t, CostForTokens(rate, 4)*1_000_000, sum)
		assert.Equal(t, MicroUSD(3_000_000), sum)
	})
}
