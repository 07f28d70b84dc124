// Package fee derives the user-facing fee from the sponsor's cost.
//
// All amounts are in the same unit, normally origin-token units. The user fee
// always covers sponsorCost * (1 + margin), so the sponsor never runs at a loss.
package fee

import (
	"math"

	"relay-swap/pkg/types"
)

const (
	// DefaultSafetyMargin is the markup applied to sponsor cost (10%)
	DefaultSafetyMargin = 0.1

	// Epsilon absorbs floating point rounding in coverage checks
	Epsilon = 1e-9
)

// CalculateFee returns max(sponsorCost*(1+margin), minUserFee).
// NaN or negative cost and margin contribute nothing to the product.
func CalculateFee(sponsorCost, margin, minUserFee float64) float64 {
	return math.Max(nonNegative(sponsorCost)*(1+nonNegative(margin)), minUserFee)
}

// Required returns the smallest fee that covers sponsorCost with margin
func Required(sponsorCost, margin float64) float64 {
	return sponsorCost * (1 + margin)
}

// IsFeeCovered reports whether the quote's user fee covers its sponsor cost
// plus margin
func IsFeeCovered(quote types.QuoteResult, margin float64) bool {
	return quote.UserFee >= Required(quote.SponsorCost, margin)-Epsilon
}

// ApplySlippage returns the minimum acceptable output for a tolerance.
// Tolerances outside [0, 1] are clamped.
func ApplySlippage(expectedOutput, tolerance float64) float64 {
	return expectedOutput * (1 - clamp(tolerance, 0, 1))
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
