package relay

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/fee"
	"relay-swap/pkg/types"
)

// DefaultOriginDecimals is used when the origin token's decimals are unknown
const DefaultOriginDecimals = 18

// FeePolicy controls how the user fee is derived from Relay's fee breakdown
type FeePolicy struct {
	SafetyMargin float64
	MinUserFee   float64
}

// DefaultFeePolicy applies the default safety margin with no fee floor
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{SafetyMargin: fee.DefaultSafetyMargin}
}

// ToCurrency maps native aliases to the zero address and passes anything
// else through trimmed
func ToCurrency(token string) string {
	if chains.IsNative(token) {
		return chains.NativeAddress
	}
	return strings.TrimSpace(token)
}

// ToSmallestUnit converts a human amount to an integer string with decimals
// places, rounding half away from zero
func ToSmallestUnit(amount float64, decimals int32) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0"
	}
	return decimal.NewFromFloat(amount).Shift(decimals).Round(0).String()
}

// ToQuoteRequest builds a Relay quote request. amount is converted to the
// origin token's smallest unit using originDecimals.
func ToQuoteRequest(req types.SwapRequest, originDecimals int32) *QuoteRequest {
	body := &QuoteRequest{
		User:                req.UserAddress,
		OriginChainID:       chains.ID(req.FromChain),
		DestinationChainID:  chains.ID(req.ToChain),
		OriginCurrency:      ToCurrency(req.FromToken),
		DestinationCurrency: ToCurrency(req.ToToken),
		Amount:              ToSmallestUnit(req.Amount, originDecimals),
		TradeType:           TradeTypeExactInput,
		Recipient:           req.Recipient,
	}
	if req.SlippageTolerance > 0 {
		body.SlippageTolerance = toBasisPoints(req.SlippageTolerance)
	}
	return body
}

// toBasisPoints renders a fractional tolerance in basis points, clamped to
// [0, 10000]
func toBasisPoints(tolerance float64) string {
	bps := decimal.NewFromFloat(tolerance).Shift(4).Round(0)
	if bps.GreaterThan(decimal.NewFromInt(10000)) {
		bps = decimal.NewFromInt(10000)
	}
	return bps.String()
}

// SponsorCost picks the sponsor cost from the fee breakdown: the gas fee, or
// the relayer fee when gas is absent or exactly zero
func SponsorCost(fees *Fees) float64 {
	if fees == nil {
		return 0
	}
	if gas, ok := fees.Gas.Formatted(); ok && gas != 0 {
		return gas
	}
	if relayer, ok := fees.Relayer.Formatted(); ok {
		return relayer
	}
	return 0
}

// RequestIDOrStep returns the quote's request id, falling back to the first step's
func (r *QuoteResponse) RequestIDOrStep() string {
	if r.RequestID != "" {
		return r.RequestID
	}
	if len(r.Steps) > 0 {
		return r.Steps[0].RequestID
	}
	return ""
}

// ToQuoteResult maps a Relay quote to a QuoteResult. The user fee is derived
// from the sponsor cost and never taken from the provider.
func ToQuoteResult(res *QuoteResponse, policy FeePolicy) *types.QuoteResult {
	result := &types.QuoteResult{
		RouteAvailable: len(res.Steps) > 0,
		RequestID:      res.RequestIDOrStep(),
	}

	if res.Details != nil {
		if out, ok := res.Details.CurrencyOut.Formatted(); ok {
			result.ExpectedOutput = out
		}
	}

	result.SponsorCost = SponsorCost(res.Fees)
	result.UserFee = fee.CalculateFee(result.SponsorCost, policy.SafetyMargin, policy.MinUserFee)
	return result
}

// Payload decodes the item data into an executor payload. ok is false when
// the data describes nothing submittable.
func (d *StepItemData) Payload() (bridge.Payload, bool, error) {
	if d == nil {
		return nil, false, nil
	}

	if d.Serialized != "" || len(d.Instructions) > 0 {
		return d.solanaPayload(), true, nil
	}

	if d.To == nil || d.Data == nil || d.Value == nil || *d.To == "" {
		return nil, false, nil
	}

	value, ok := new(big.Int).SetString(*d.Value, 10)
	if !ok {
		return nil, false, fmt.Errorf("invalid step value %q", *d.Value)
	}

	tx := bridge.EVMTransaction{
		ChainID: d.ChainID,
		To:      *d.To,
		Data:    *d.Data,
		Value:   value,
	}
	if d.From != nil {
		tx.From = *d.From
	}
	if d.MaxFeePerGas != nil {
		if tx.MaxFeePerGas, ok = new(big.Int).SetString(*d.MaxFeePerGas, 10); !ok {
			return nil, false, fmt.Errorf("invalid step maxFeePerGas %q", *d.MaxFeePerGas)
		}
	}
	if d.MaxPriorityFeePerGas != nil {
		if tx.MaxPriorityFeePerGas, ok = new(big.Int).SetString(*d.MaxPriorityFeePerGas, 10); !ok {
			return nil, false, fmt.Errorf("invalid step maxPriorityFeePerGas %q", *d.MaxPriorityFeePerGas)
		}
	}
	return tx, true, nil
}

func (d *StepItemData) solanaPayload() bridge.SolanaTransaction {
	tx := bridge.SolanaTransaction{
		Serialized:   d.Serialized,
		LookupTables: d.AddressLookupTableAddresses,
	}
	for _, ix := range d.Instructions {
		out := bridge.SolanaInstruction{ProgramID: ix.ProgramID, Data: ix.Data}
		for _, k := range ix.Keys {
			out.Keys = append(out.Keys, bridge.SolanaAccountMeta{
				PublicKey:  k.Pubkey,
				IsSigner:   k.IsSigner,
				IsWritable: k.IsWritable,
			})
		}
		tx.Instructions = append(tx.Instructions, out)
	}
	return tx
}

// FirstTransactionPayload returns the payload of the first transaction step
// whose first item decodes to something submittable
func FirstTransactionPayload(res *QuoteResponse) (bridge.Payload, error) {
	for _, step := range res.Steps {
		if step.Kind != StepKindTransaction || len(step.Items) == 0 {
			continue
		}
		p, ok, err := step.Items[0].Data.Payload()
		if err != nil {
			return nil, err
		}
		if ok {
			return p, nil
		}
	}
	return nil, ErrNoTransactionStep
}

// ToStatusUpdate maps a Relay status response
func ToStatusUpdate(requestID string, res *StatusResponse) *types.StatusUpdate {
	update := &types.StatusUpdate{
		RequestID: requestID,
		Status:    string(res.Status),
		Terminal:  res.Status.IsTerminal(),
		TxHashes:  append(append([]string(nil), res.InTxHashes...), res.TxHashes...),
		Detail:    res,
	}
	if res.UpdatedAt > 0 {
		update.UpdatedAt = time.UnixMilli(res.UpdatedAt).UTC()
	}
	return update
}
