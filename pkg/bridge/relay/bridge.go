package relay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/types"
)

// Name is the provider name used in logs and metrics
const Name = "Relay"

// BridgeConfig configures the Relay bridge
type BridgeConfig struct {
	Client API
	Policy FeePolicy
	// OriginDecimals converts request amounts to smallest units
	OriginDecimals int32
	// Executor submits the first transaction step. Without one, ExecuteSwap
	// fails and steps must be executed client-side.
	Executor bridge.Executor
}

// Bridge adapts the Relay API to bridge.Bridge
type Bridge struct {
	client         API
	policy         FeePolicy
	originDecimals int32
	executor       bridge.Executor
	logger         *zap.Logger
}

// NewBridge creates a Relay bridge
func NewBridge(config BridgeConfig, logger *zap.Logger) *Bridge {
	if config.OriginDecimals <= 0 {
		config.OriginDecimals = DefaultOriginDecimals
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		client:         config.Client,
		policy:         config.Policy,
		originDecimals: config.OriginDecimals,
		executor:       config.Executor,
		logger:         logger,
	}
}

var _ bridge.Bridge = (*Bridge)(nil)

func (b *Bridge) Name() string {
	return Name
}

// GetQuote requests a quote and derives the user fee from its fee breakdown
func (b *Bridge) GetQuote(ctx context.Context, req types.SwapRequest) (*types.QuoteResult, error) {
	res, err := b.client.GetQuote(ctx, ToQuoteRequest(req, b.originDecimals))
	if err != nil {
		return nil, err
	}
	return ToQuoteResult(res, b.policy), nil
}

// Quote returns the raw Relay quote for callers that present its steps
func (b *Bridge) Quote(ctx context.Context, req types.SwapRequest) (*QuoteResponse, error) {
	return b.client.GetQuote(ctx, ToQuoteRequest(req, b.originDecimals))
}

// ExecuteSwap re-quotes and submits the first transaction step through the
// configured executor
func (b *Bridge) ExecuteSwap(ctx context.Context, req types.SwapRequest) (*types.SwapResult, error) {
	res, err := b.client.GetQuote(ctx, ToQuoteRequest(req, b.originDecimals))
	if err != nil {
		return types.Failed("Quote failed: " + err.Error()), nil
	}
	if len(res.Steps) == 0 {
		return types.Failed(ErrNoSteps.Error()), nil
	}

	requestID := res.RequestIDOrStep()
	if b.executor == nil {
		id := requestID
		if id == "" {
			id = "unknown"
		}
		return types.Failed(fmt.Sprintf(
			"Relay execution requires an executor. Provide executor in RelayBridgeConfig, or execute steps client-side. requestId: %s", id)), nil
	}

	payload, err := FirstTransactionPayload(res)
	if errors.Is(err, ErrNoTransactionStep) {
		return types.Failed(err.Error()), nil
	}
	if err != nil {
		return &types.SwapResult{Error: err.Error(), ErrorKind: string(bridge.KindOf(err)), RequestID: requestID}, nil
	}

	b.logger.Info("submitting Relay step",
		zap.String("requestId", requestID),
		zap.Int64("chainId", payload.Chain()))

	txHash, err := b.executor.Submit(ctx, payload)
	if err != nil {
		b.logger.Warn("Relay step submission failed",
			zap.String("requestId", requestID),
			zap.Error(err))
		return &types.SwapResult{
			Error:     err.Error(),
			ErrorKind: string(bridge.KindOf(err)),
			RequestID: requestID,
		}, nil
	}

	quote := ToQuoteResult(res, b.policy)
	return &types.SwapResult{
		Success:     true,
		TxHash:      txHash,
		RequestID:   requestID,
		UserFee:     types.Float(quote.UserFee),
		SponsorCost: types.Float(quote.SponsorCost),
	}, nil
}

var _ bridge.StatusFetcher = (*Bridge)(nil)

// GetStatus fetches the intent status of a request
func (b *Bridge) GetStatus(ctx context.Context, requestID string) (*types.StatusUpdate, error) {
	res, err := b.client.GetStatus(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return ToStatusUpdate(requestID, res), nil
}
