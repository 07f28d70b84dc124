package types

import "time"

// SwapRequest describes a single cross-chain transfer attempt
type SwapRequest struct {
	FromChain         string  `json:"fromChain"`                   // Origin chain name or numeric id
	ToChain           string  `json:"toChain"`                     // Destination chain name or numeric id
	FromToken         string  `json:"fromToken"`                   // Origin currency (mint, contract or "native")
	ToToken           string  `json:"toToken"`                     // Destination currency
	Amount            float64 `json:"amount"`                      // Human units of the origin token
	UserAddress       string  `json:"userAddress"`                 // Depositor on the origin chain
	Recipient         string  `json:"recipient,omitempty"`         // Receiver on the destination chain
	SlippageTolerance float64 `json:"slippageTolerance,omitempty"` // Fraction, 0 leaves the provider default
}

// QuoteResult is the provider-agnostic view of a quote
type QuoteResult struct {
	RouteAvailable bool    `json:"routeAvailable"`
	ExpectedOutput float64 `json:"expectedOutput"` // After fees, before slippage
	UserFee        float64 `json:"userFee"`        // Origin-token units charged to the user
	SponsorCost    float64 `json:"sponsorCost"`    // Origin-token units paid by the sponsor
	RequestID      string  `json:"requestId,omitempty"`
}

// SwapResult is the outcome of an execution attempt.
// UserFee and SponsorCost are only ever set on successful results.
type SwapResult struct {
	Success     bool     `json:"success"`
	TxHash      string   `json:"txHash,omitempty"`
	Error       string   `json:"error,omitempty"`
	ErrorKind   string   `json:"errorKind,omitempty"`
	RequestID   string   `json:"requestId,omitempty"`
	UserFee     *float64 `json:"userFee,omitempty"`
	SponsorCost *float64 `json:"sponsorCost,omitempty"`
}

// Failed builds an unsuccessful result carrying only an error description
func Failed(message string) *SwapResult {
	return &SwapResult{Success: false, Error: message}
}

// AuditAction tags an audit entry
type AuditAction string

const (
	ActionExecuteSwap         AuditAction = "execute_swap"
	ActionExecuteSwapRejected AuditAction = "execute_swap_rejected"
)

// AuditLogEntry is an append-only record of an orchestration outcome
type AuditLogEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"ts"`
	Action      AuditAction `json:"action"`
	Request     SwapRequest `json:"request"`
	Result      *SwapResult `json:"result,omitempty"`
	Fee         *float64    `json:"fee,omitempty"`
	SponsorCost *float64    `json:"sponsorCost,omitempty"`
	MinOutput   *float64    `json:"minOutput,omitempty"`
}

// TokenStandard identifies the Solana token program owning a mint
type TokenStandard string

const (
	TokenStandardSPL       TokenStandard = "SPL"
	TokenStandardToken2022 TokenStandard = "Token-2022"
)

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// StatusUpdate is a provider-agnostic snapshot of a submitted swap
type StatusUpdate struct {
	RequestID string      `json:"requestId"`
	Status    string      `json:"status"`
	Terminal  bool        `json:"terminal"`
	TxHashes  []string    `json:"txHashes,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt,omitempty"`
	Detail    interface{} `json:"detail,omitempty"`
}
