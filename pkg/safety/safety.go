// Package safety gates execution on a quote/request pair and re-checks the
// fee figures attached to successful results.
package safety

import (
	"fmt"

	"relay-swap/pkg/fee"
	"relay-swap/pkg/types"
)

// DefaultMaxSlippageTolerance is the largest tolerance accepted by default (50%)
const DefaultMaxSlippageTolerance = 0.5

// Checks configures ValidateQuoteAndRequest
type Checks struct {
	SafetyMargin         float64
	MaxSlippageTolerance float64
}

// NewChecks returns checks for margin with the default slippage ceiling
func NewChecks(margin float64) Checks {
	return Checks{
		SafetyMargin:         margin,
		MaxSlippageTolerance: DefaultMaxSlippageTolerance,
	}
}

// ValidateQuoteAndRequest returns nil when execution may proceed, or a
// *Rejection for the first failing rule. Rules are evaluated in order:
// route availability, fee coverage, slippage ceiling, positive amount.
func ValidateQuoteAndRequest(req types.SwapRequest, quote types.QuoteResult, checks Checks) error {
	if !quote.RouteAvailable {
		return &Rejection{
			Reason:  ReasonNoRoute,
			Message: "Route not available or insufficient liquidity",
		}
	}

	if !fee.IsFeeCovered(quote, checks.SafetyMargin) {
		return &Rejection{
			Reason:  ReasonFeeNotCovered,
			Message: fmt.Sprintf("User fee %v does not cover sponsor cost %v + safety margin", quote.UserFee, quote.SponsorCost),
		}
	}

	if req.SlippageTolerance > checks.MaxSlippageTolerance {
		return &Rejection{
			Reason:  ReasonSlippageTooHigh,
			Message: fmt.Sprintf("Slippage tolerance %v exceeds maximum %v", req.SlippageTolerance, checks.MaxSlippageTolerance),
		}
	}

	// !(x > 0) also rejects NaN
	if !(req.Amount > 0) {
		return &Rejection{
			Reason:  ReasonNonPositiveInput,
			Message: "Amount must be positive",
		}
	}

	return nil
}

// AssertSponsorSafe re-derives the required fee from a successful result's
// sponsor cost. It is a no-op for failed results and for results without fee
// figures. A violation returns an *InvariantError.
func AssertSponsorSafe(result *types.SwapResult, _ types.QuoteResult, margin float64) error {
	if result == nil || !result.Success {
		return nil
	}
	if result.SponsorCost == nil || result.UserFee == nil {
		return nil
	}

	required := fee.Required(*result.SponsorCost, margin)
	if !(*result.UserFee >= required-fee.Epsilon) {
		return &InvariantError{UserFee: *result.UserFee, Required: required}
	}
	return nil
}
