package safety

import (
	"errors"
	"fmt"
)

// Reason classifies a validation rejection
type Reason string

const (
	ReasonNoRoute          Reason = "no_route"
	ReasonFeeNotCovered    Reason = "fee_not_covered"
	ReasonSlippageTooHigh  Reason = "slippage_too_high"
	ReasonNonPositiveInput Reason = "non_positive_amount"
)

// Rejection is an ordinary, caller-recoverable validation failure
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// ErrSponsorInvariant marks a successful result that under-covers the sponsor.
// It signals a logic defect, never a user error.
var ErrSponsorInvariant = errors.New("sponsor safety invariant violated")

// InvariantError carries the figures of a sponsor-safety violation
type InvariantError struct {
	UserFee  float64
	Required float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("Audit violation: userFee %v < required %v", e.UserFee, e.Required)
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrSponsorInvariant
}

// IsRejection reports whether err is a validation rejection
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}
