package relay

import "context"

// API defines the Relay endpoints used by the bridge and the proof flow
type API interface {
	// GetQuote requests an executable quote
	GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error)

	// GetStatus fetches the status of an intent
	GetStatus(ctx context.Context, requestID string) (*StatusResponse, error)
}

// Ensure Client implements API interface
var _ API = (*Client)(nil)
