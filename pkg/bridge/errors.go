package bridge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an execution failure
type ErrorKind string

const (
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	KindSimulationFailed  ErrorKind = "simulation_failed"
	KindRejected          ErrorKind = "rejected"
	KindUnsupported       ErrorKind = "unsupported"
	KindNetwork           ErrorKind = "network"
	KindUnknown           ErrorKind = "unknown"
)

// ExecutionError is returned by executors so callers can branch on the kind
// of failure instead of on message text
type ExecutionError struct {
	Kind ErrorKind
	// Code is the program or RPC error code when one was reported
	Code int64
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError wraps err with a kind
func NewExecutionError(kind ErrorKind, err error) *ExecutionError {
	return &ExecutionError{Kind: kind, Err: err}
}

// Errorf builds an ExecutionError with a formatted message
func Errorf(kind ErrorKind, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of an execution error, or KindUnknown
func KindOf(err error) ErrorKind {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return KindUnknown
}
