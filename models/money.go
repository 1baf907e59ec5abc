package models

import (
	"fmt"
	"math"
)

// MicroUSD is a monetary amount in millionths of a US dollar.
// Provider costs are fractions of a cent and are summed across very
// large request counts, so accumulation happens in fixed-point integer
// math rather than float64.
type MicroUSD int64

// MicrosPerDollar is the fixed-point scale: 1 USD = 1,000,000 MicroUSD.
const MicrosPerDollar = 1_000_000

// MicroUSDFromFloat converts a dollar amount to MicroUSD, rounding to
// the nearest micro-dollar. Intended for configuration boundaries
// (e.g. a daily limit read from the environment), not for accumulation.
func MicroUSDFromFloat(dollars float64) MicroUSD {
	return MicroUSD(math.Round(dollars * MicrosPerDollar))
}

// Dollars returns the amount as a float64 dollar value for display.
func (m MicroUSD) Dollars() float64 {
	return float64(m) / MicrosPerDollar
}

// String formats the amount as a decimal dollar string with six
// fractional digits, e.g. "10.000000".
func (m MicroUSD) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/MicrosPerDollar, v%MicrosPerDollar)
}

// tokensPerMillion is the denominator for per-million-token pricing.
const tokensPerMillion = 1_000_000

// CostForTokens prices a token count against a per-million-token rate.
// Both the rate and the result are in MicroUSD, so the computation is
// exact integer arithmetic: cost = tokens * rate / 1,000,000. The
// count is split into whole millions and a remainder so the
// intermediate product cannot overflow for any realistic rate; the
// remainder term stays below rate * 1e6.
func CostForTokens(ratePerMillionTokens MicroUSD, tokens int) MicroUSD {
	if tokens <= 0 || ratePerMillionTokens <= 0 {
		return 0
	}

	rate := int64(ratePerMillionTokens)
	whole := int64(tokens) / tokensPerMillion
	rem := int64(tokens) % tokensPerMillion

	return MicroUSD(whole*rate + rem*rate/tokensPerMillion)
}
