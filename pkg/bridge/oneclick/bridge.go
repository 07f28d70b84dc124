package oneclick

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/fee"
	"relay-swap/pkg/types"
)

// Name is the provider name used in logs and metrics
const Name = "1Click"

// blockchains maps chain ids to 1Click blockchain names
var blockchains = map[int64]string{
	chains.Solana:   "sol",
	chains.Base:     "base",
	chains.Arbitrum: "arb",
	chains.Optimism: "op",
	chains.Ethereum: "eth",
	chains.Polygon:  "pol",
}

// Blockchain returns the 1Click blockchain name of a chain name or id
func Blockchain(chain string) string {
	if name, ok := blockchains[chains.ID(chain)]; ok {
		return name
	}
	return strings.ToLower(strings.TrimSpace(chain))
}

// BridgeConfig configures the 1Click bridge
type BridgeConfig struct {
	Client       API
	SafetyMargin float64
	MinUserFee   float64
	// DepositCost is the sponsor's cost of the origin-chain deposit, in
	// origin token units. 1Click quotes carry no fee breakdown.
	DepositCost float64
	Executor    bridge.Executor
}

// Bridge adapts 1Click to bridge.Bridge. Swaps are executed by transferring
// the input to a per-quote deposit address.
type Bridge struct {
	config BridgeConfig
	logger *zap.Logger
}

var (
	_ bridge.Bridge        = (*Bridge)(nil)
	_ bridge.StatusFetcher = (*Bridge)(nil)
)

// NewBridge creates a 1Click bridge
func NewBridge(config BridgeConfig, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{config: config, logger: logger}
}

func (b *Bridge) Name() string {
	return Name
}

// GetQuote requests a dry quote
func (b *Bridge) GetQuote(ctx context.Context, req types.SwapRequest) (*types.QuoteResult, error) {
	q, _, err := b.quote(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return ToQuoteResult(q, b.config.DepositCost, b.config.SafetyMargin, b.config.MinUserFee), nil
}

// ExecuteSwap reserves a deposit address, transfers the input to it and
// reports the deposit transaction back to 1Click
func (b *Bridge) ExecuteSwap(ctx context.Context, req types.SwapRequest) (*types.SwapResult, error) {
	q, origin, err := b.quote(ctx, req, false)
	if err != nil {
		return types.Failed("Quote failed: " + err.Error()), nil
	}
	if q.DepositAddress == "" {
		return types.Failed("1Click quote returned no deposit address"), nil
	}
	if b.config.Executor == nil {
		return &types.SwapResult{
			Error:     fmt.Sprintf("1Click execution requires an executor. Send %v %s to %s to complete the swap.", req.Amount, origin.Symbol, q.DepositAddress),
			RequestID: q.DepositAddress,
		}, nil
	}

	transfer := bridge.Transfer{
		ChainID:  chains.ID(req.FromChain),
		To:       q.DepositAddress,
		Token:    origin.ContractAddress,
		Amount:   decimal.NewFromFloat(req.Amount).String(),
		Decimals: origin.Decimals,
		Memo:     q.DepositMemo,
	}

	txHash, err := b.config.Executor.Submit(ctx, transfer)
	if err != nil {
		b.logger.Warn("1Click deposit failed",
			zap.String("depositAddress", q.DepositAddress),
			zap.Error(err))
		return &types.SwapResult{
			Error:     err.Error(),
			ErrorKind: string(bridge.KindOf(err)),
			RequestID: q.DepositAddress,
		}, nil
	}

	// Best effort: 1Click also detects deposits on its own
	if err := b.config.Client.SubmitDepositTx(ctx, q.DepositAddress, txHash); err != nil {
		b.logger.Warn("failed to submit deposit tx to 1Click",
			zap.String("depositAddress", q.DepositAddress),
			zap.String("txHash", txHash),
			zap.Error(err))
	}

	result := ToQuoteResult(q, b.config.DepositCost, b.config.SafetyMargin, b.config.MinUserFee)
	return &types.SwapResult{
		Success:     true,
		TxHash:      txHash,
		RequestID:   q.DepositAddress,
		UserFee:     types.Float(result.UserFee),
		SponsorCost: types.Float(result.SponsorCost),
	}, nil
}

// GetStatus looks up a swap by its deposit address
func (b *Bridge) GetStatus(ctx context.Context, depositAddress string) (*types.StatusUpdate, error) {
	status, err := b.config.Client.GetExecutionStatus(ctx, depositAddress)
	if err != nil {
		return nil, err
	}
	return ToStatusUpdate(depositAddress, status), nil
}

// Tokens lists the supported tokens
func (b *Bridge) Tokens(ctx context.Context) ([]Token, error) {
	return b.config.Client.GetTokens(ctx)
}

func (b *Bridge) quote(ctx context.Context, req types.SwapRequest, dry bool) (*Quote, *Token, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, nil, fmt.Errorf("invalid amount: %v", req.Amount)
	}

	tokens, err := b.config.Client.GetTokens(ctx)
	if err != nil {
		return nil, nil, err
	}

	origin, err := FindToken(tokens, req.FromToken, Blockchain(req.FromChain))
	if err != nil {
		return nil, nil, fmt.Errorf("source token error: %w", err)
	}
	dest, err := FindToken(tokens, req.ToToken, Blockchain(req.ToChain))
	if err != nil {
		return nil, nil, fmt.Errorf("destination token error: %w", err)
	}

	recipient := req.Recipient
	if recipient == "" {
		return nil, nil, fmt.Errorf("recipient address is required")
	}

	q, err := b.config.Client.GetQuote(ctx, QuoteParams{
		Dry:              dry,
		OriginAsset:      origin.AssetID,
		DestinationAsset: dest.AssetID,
		Amount:           decimal.NewFromFloat(req.Amount).Shift(origin.Decimals).Round(0).String(),
		RefundTo:         req.UserAddress,
		Recipient:        recipient,
		SlippageBps:      toBasisPoints(req.SlippageTolerance),
	})
	if err != nil {
		return nil, nil, err
	}
	return q, origin, nil
}

// toBasisPoints converts a fractional tolerance to basis points, clamped to
// [0, 10000]
func toBasisPoints(tolerance float64) int64 {
	if tolerance <= 0 || math.IsNaN(tolerance) {
		return 0
	}
	bps := decimal.NewFromFloat(math.Min(tolerance, 1)).Shift(4).Round(0)
	return bps.IntPart()
}

// FindToken finds a token on blockchain by symbol or contract address.
// Native aliases match the chain's token without a contract address.
func FindToken(tokens []Token, token, blockchain string) (*Token, error) {
	token = strings.TrimSpace(token)
	native := chains.IsNative(token)

	for i := range tokens {
		t := &tokens[i]
		if !strings.EqualFold(t.Blockchain, blockchain) {
			continue
		}
		if strings.EqualFold(t.Symbol, token) {
			return t, nil
		}
		if t.ContractAddress != "" && strings.EqualFold(t.ContractAddress, token) {
			return t, nil
		}
		if native && t.ContractAddress == "" {
			return t, nil
		}
	}
	return nil, fmt.Errorf("token '%s' not found on chain '%s'", token, blockchain)
}

// ToQuoteResult maps a 1Click quote. A route is available when the quote
// yields a positive output.
func ToQuoteResult(q *Quote, depositCost, margin, minUserFee float64) *types.QuoteResult {
	result := &types.QuoteResult{
		SponsorCost: depositCost,
		UserFee:     fee.CalculateFee(depositCost, margin, minUserFee),
		RequestID:   q.DepositAddress,
	}
	if out, err := decimal.NewFromString(strings.TrimSpace(q.AmountOut)); err == nil {
		result.ExpectedOutput = out.InexactFloat64()
	}
	result.RouteAvailable = result.ExpectedOutput > 0
	return result
}

// ToStatusUpdate maps a 1Click execution status
func ToStatusUpdate(depositAddress string, s *ExecutionStatus) *types.StatusUpdate {
	status := strings.ToUpper(s.Status)
	return &types.StatusUpdate{
		RequestID: depositAddress,
		Status:    status,
		Terminal:  IsTerminal(status),
		TxHashes:  append(append([]string(nil), s.OriginTxHashes...), s.DestinationTxHashes...),
		UpdatedAt: s.UpdatedAt,
		Detail:    s,
	}
}

// IsTerminal reports whether a 1Click status is final
func IsTerminal(status string) bool {
	switch strings.ToUpper(status) {
	case "SUCCESS", "COMPLETED", "FAILED", "REFUNDED":
		return true
	}
	return false
}
