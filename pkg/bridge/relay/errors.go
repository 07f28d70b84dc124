package relay

import (
	"errors"
	"fmt"
)

// APIError is returned for any non-2xx response from the Relay API
type APIError struct {
	Operation  string // "quote" or "status"
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Relay %s failed %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// ErrNoSteps indicates the quote contained nothing to execute
var ErrNoSteps = errors.New("Relay quote returned no steps")

// ErrNoTransactionStep indicates no step decoded to a submittable payload
var ErrNoTransactionStep = errors.New("No transaction step to execute")
