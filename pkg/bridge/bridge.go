// Package bridge defines the boundary between the swap orchestrator and the
// bridging providers, plus the executor capability providers use to submit
// transactions.
package bridge

import (
	"context"

	"relay-swap/pkg/types"
)

// Bridge is a quote provider that can optionally execute a swap
type Bridge interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// GetQuote returns a provider-agnostic quote. Errors are provider errors.
	GetQuote(ctx context.Context, req types.SwapRequest) (*types.QuoteResult, error)

	// ExecuteSwap reports every provider or executor failure as an
	// unsuccessful result rather than an error.
	ExecuteSwap(ctx context.Context, req types.SwapRequest) (*types.SwapResult, error)
}

// Executor submits a normalized transaction payload and returns its
// transaction or settlement handle
type Executor interface {
	Submit(ctx context.Context, payload Payload) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, payload Payload) (string, error)

// Submit calls f(ctx, payload)
func (f ExecutorFunc) Submit(ctx context.Context, payload Payload) (string, error) {
	return f(ctx, payload)
}

// StatusFetcher is implemented by bridges that can report the progress of a
// submitted swap
type StatusFetcher interface {
	GetStatus(ctx context.Context, requestID string) (*types.StatusUpdate, error)
}
