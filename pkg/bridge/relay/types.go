package relay

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeType of a quote request
type TradeType string

const (
	TradeTypeExactInput     TradeType = "EXACT_INPUT"
	TradeTypeExactOutput    TradeType = "EXACT_OUTPUT"
	TradeTypeExpectedOutput TradeType = "EXPECTED_OUTPUT"
)

// QuoteRequest is the body of POST /quote/v2
type QuoteRequest struct {
	User                string    `json:"user"`
	OriginChainID       int64     `json:"originChainId"`
	DestinationChainID  int64     `json:"destinationChainId"`
	OriginCurrency      string    `json:"originCurrency"`
	DestinationCurrency string    `json:"destinationCurrency"`
	Amount              string    `json:"amount"`
	TradeType           TradeType `json:"tradeType"`
	Recipient           string    `json:"recipient,omitempty"`
	SlippageTolerance   string    `json:"slippageTolerance,omitempty"`
}

// StepKind tags a quote step
type StepKind string

const (
	StepKindTransaction StepKind = "transaction"
	StepKindSignature   StepKind = "signature"
)

// Instruction is a Solana instruction as returned in SVM step items
type Instruction struct {
	Keys []struct {
		Pubkey     string `json:"pubkey"`
		IsSigner   bool   `json:"isSigner"`
		IsWritable bool   `json:"isWritable"`
	} `json:"keys"`
	ProgramID string `json:"programId"`
	Data      string `json:"data"`
}

// StepItemData carries either an EVM call (to, data, value, chainId) or an
// SVM transaction (serialized or instructions). Absent fields stay nil.
type StepItemData struct {
	From                 *string `json:"from,omitempty"`
	To                   *string `json:"to,omitempty"`
	Data                 *string `json:"data,omitempty"`
	Value                *string `json:"value,omitempty"`
	ChainID              int64   `json:"chainId,omitempty"`
	MaxFeePerGas         *string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *string `json:"maxPriorityFeePerGas,omitempty"`

	Serialized                  string        `json:"serialized,omitempty"`
	Instructions                []Instruction `json:"instructions,omitempty"`
	AddressLookupTableAddresses []string      `json:"addressLookupTableAddresses,omitempty"`
}

// StepItemCheck points at the endpoint used to poll an item's progress
type StepItemCheck struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
}

// StepItem is one signable unit of a step
type StepItem struct {
	Status string         `json:"status"`
	Data   *StepItemData  `json:"data,omitempty"`
	Check  *StepItemCheck `json:"check,omitempty"`
}

// Step is an ordered action the user (or an executor) must perform
type Step struct {
	ID          string     `json:"id"`
	Action      string     `json:"action"`
	Description string     `json:"description,omitempty"`
	Kind        StepKind   `json:"kind"`
	RequestID   string     `json:"requestId"`
	Items       []StepItem `json:"items"`
}

// Currency describes a token on a chain
type Currency struct {
	ChainID  int64  `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Amount is a fee or details amount. Every field is optional.
type Amount struct {
	Amount          string    `json:"amount,omitempty"`
	AmountFormatted string    `json:"amountFormatted,omitempty"`
	AmountUSD       string    `json:"amountUsd,omitempty"`
	MinimumAmount   string    `json:"minimumAmount,omitempty"`
	Currency        *Currency `json:"currency,omitempty"`
}

// Formatted parses AmountFormatted. ok is false when the amount is nil or
// the field is missing or not a number.
func (a *Amount) Formatted() (value float64, ok bool) {
	if a == nil {
		return 0, false
	}
	s := strings.TrimSpace(a.AmountFormatted)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Fees is the quote's fee breakdown
type Fees struct {
	Gas            *Amount `json:"gas,omitempty"`
	Relayer        *Amount `json:"relayer,omitempty"`
	RelayerGas     *Amount `json:"relayerGas,omitempty"`
	RelayerService *Amount `json:"relayerService,omitempty"`
	App            *Amount `json:"app,omitempty"`
	Subsidized     *Amount `json:"subsidized,omitempty"`
}

// Details summarises the quoted swap
type Details struct {
	CurrencyIn  *Amount `json:"currencyIn,omitempty"`
	CurrencyOut *Amount `json:"currencyOut,omitempty"`
	Operation   string  `json:"operation,omitempty"`
	Sender      string  `json:"sender,omitempty"`
	Recipient   string  `json:"recipient,omitempty"`
}

// QuoteResponse is the body returned by POST /quote/v2
type QuoteResponse struct {
	RequestID string   `json:"requestId,omitempty"`
	Steps     []Step   `json:"steps"`
	Fees      *Fees    `json:"fees,omitempty"`
	Details   *Details `json:"details,omitempty"`
}

// Status of an intent
type Status string

const (
	StatusPending  Status = "pending"
	StatusWaiting  Status = "waiting"
	StatusSuccess  Status = "success"
	StatusFailure  Status = "failure"
	StatusRefunded Status = "refunded"
)

// IsTerminal reports whether no further transitions are expected
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure || s == StatusRefunded
}

// StatusResponse is the body returned by GET /intents/status/v3. Provider
// fields this package does not model are kept in Raw.
type StatusResponse struct {
	Status     Status   `json:"status"`
	RequestID  string   `json:"requestId,omitempty"`
	InTxHashes []string `json:"inTxHashes,omitempty"`
	TxHashes   []string `json:"txHashes,omitempty"`
	UpdatedAt  int64    `json:"updatedAt,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw document next to the typed fields
func (s *StatusResponse) UnmarshalJSON(b []byte) error {
	type plain StatusResponse
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = StatusResponse(p)
	s.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// MarshalJSON returns the raw document when one was decoded
func (s StatusResponse) MarshalJSON() ([]byte, error) {
	if len(s.Raw) > 0 {
		return s.Raw, nil
	}
	type plain StatusResponse
	return json.Marshal(plain(s))
}
