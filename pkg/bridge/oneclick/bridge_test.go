package oneclick

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/types"
)

type fakeAPI struct {
	tokens    []Token
	quote     *Quote
	quoteErr  error
	params    []QuoteParams
	deposits  [][2]string
	depositFn func() error
}

func (f *fakeAPI) GetTokens(context.Context) ([]Token, error) {
	return f.tokens, nil
}

func (f *fakeAPI) GetQuote(_ context.Context, params QuoteParams) (*Quote, error) {
	f.params = append(f.params, params)
	return f.quote, f.quoteErr
}

func (f *fakeAPI) GetExecutionStatus(_ context.Context, depositAddress string) (*ExecutionStatus, error) {
	return &ExecutionStatus{
		Status:              "success",
		UpdatedAt:           time.Unix(1700000000, 0).UTC(),
		OriginTxHashes:      []string{"in"},
		DestinationTxHashes: []string{"out"},
	}, nil
}

func (f *fakeAPI) SubmitDepositTx(_ context.Context, depositAddress, txHash string) error {
	f.deposits = append(f.deposits, [2]string{depositAddress, txHash})
	if f.depositFn != nil {
		return f.depositFn()
	}
	return nil
}

var testTokens = []Token{
	{Symbol: "ETH", Blockchain: "base", AssetID: "nep141:base.omft.near", Decimals: 18},
	{Symbol: "USDC", Blockchain: "base", AssetID: "nep141:base-usdc", ContractAddress: chains.USDCBase, Decimals: 6},
	{Symbol: "USDC", Blockchain: "arb", AssetID: "nep141:arb-usdc", ContractAddress: chains.USDCArbitrum, Decimals: 6},
}

var swapRequest = types.SwapRequest{
	FromChain:   "base",
	ToChain:     "arbitrum",
	FromToken:   "USDC",
	ToToken:     "USDC",
	Amount:      25,
	UserAddress: "0xuser",
	Recipient:   "0xrecipient",
}

func TestFindToken(t *testing.T) {
	tok, err := FindToken(testTokens, "usdc", "base")
	require.NoError(t, err)
	assert.Equal(t, "nep141:base-usdc", tok.AssetID)

	tok, err = FindToken(testTokens, chains.USDCArbitrum, "arb")
	require.NoError(t, err)
	assert.Equal(t, "nep141:arb-usdc", tok.AssetID)

	tok, err = FindToken(testTokens, chains.NativeAddress, "base")
	require.NoError(t, err)
	assert.Equal(t, "ETH", tok.Symbol)

	_, err = FindToken(testTokens, "DOGE", "base")
	assert.EqualError(t, err, "token 'DOGE' not found on chain 'base'")
}

func TestBlockchain(t *testing.T) {
	assert.Equal(t, "sol", Blockchain("solana"))
	assert.Equal(t, "base", Blockchain("8453"))
	assert.Equal(t, "arb", Blockchain("Arbitrum One"))
	assert.Equal(t, "near", Blockchain("NEAR"))
}

func TestToQuoteResult(t *testing.T) {
	q := ToQuoteResult(&Quote{DepositAddress: "dep", AmountOut: "24.9"}, 0.02, 0.1, 0)

	assert.True(t, q.RouteAvailable)
	assert.InDelta(t, 24.9, q.ExpectedOutput, 1e-12)
	assert.InDelta(t, 0.02, q.SponsorCost, 1e-12)
	assert.InDelta(t, 0.022, q.UserFee, 1e-12)
	assert.Equal(t, "dep", q.RequestID)

	q = ToQuoteResult(&Quote{AmountOut: ""}, 0, 0.1, 0.5)
	assert.False(t, q.RouteAvailable)
	assert.InDelta(t, 0.5, q.UserFee, 1e-12)
}

func TestToStatusUpdate(t *testing.T) {
	u := ToStatusUpdate("dep", &ExecutionStatus{Status: "pending_deposit"})
	assert.Equal(t, "PENDING_DEPOSIT", u.Status)
	assert.False(t, u.Terminal)

	assert.True(t, IsTerminal("refunded"))
	assert.True(t, IsTerminal("COMPLETED"))
}

func TestBridge_GetQuote(t *testing.T) {
	api := &fakeAPI{tokens: testTokens, quote: &Quote{AmountIn: "25", AmountOut: "24.9"}}
	b := NewBridge(BridgeConfig{Client: api, SafetyMargin: 0.1, DepositCost: 0.01}, zap.NewNop())

	q, err := b.GetQuote(context.Background(), swapRequest)
	require.NoError(t, err)

	assert.True(t, q.RouteAvailable)
	assert.InDelta(t, 0.011, q.UserFee, 1e-12)
	require.Len(t, api.params, 1)
	assert.True(t, api.params[0].Dry)
	assert.Equal(t, "25000000", api.params[0].Amount)
	assert.Equal(t, "nep141:base-usdc", api.params[0].OriginAsset)
	assert.Equal(t, "nep141:arb-usdc", api.params[0].DestinationAsset)
	assert.Equal(t, "0xuser", api.params[0].RefundTo)
	assert.Zero(t, api.params[0].SlippageBps)
}

func TestBridge_GetQuoteForwardsSlippage(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
		wantBps   int64
	}{
		{"unset", 0, 0},
		{"thirty percent", 0.3, 3000},
		{"half a percent", 0.005, 50},
		{"clamped", 2, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{tokens: testTokens, quote: &Quote{AmountIn: "25", AmountOut: "24.9"}}
			b := NewBridge(BridgeConfig{Client: api, SafetyMargin: 0.1, DepositCost: 0.01}, zap.NewNop())

			req := swapRequest
			req.SlippageTolerance = tt.tolerance
			_, err := b.GetQuote(context.Background(), req)
			require.NoError(t, err)

			require.Len(t, api.params, 1)
			assert.Equal(t, tt.wantBps, api.params[0].SlippageBps)
		})
	}
}

func TestBridge_GetQuoteRequiresRecipient(t *testing.T) {
	b := NewBridge(BridgeConfig{Client: &fakeAPI{tokens: testTokens}}, nil)

	req := swapRequest
	req.Recipient = ""
	_, err := b.GetQuote(context.Background(), req)
	assert.EqualError(t, err, "recipient address is required")
}

func TestBridge_ExecuteSwap(t *testing.T) {
	quote := &Quote{DepositAddress: "0xdeposit", AmountIn: "25", AmountOut: "24.9"}

	t.Run("transfers to the deposit address", func(t *testing.T) {
		api := &fakeAPI{tokens: testTokens, quote: quote}
		var sent bridge.Transfer
		exec := bridge.ExecutorFunc(func(_ context.Context, p bridge.Payload) (string, error) {
			sent = p.(bridge.Transfer)
			return "0xhash", nil
		})
		b := NewBridge(BridgeConfig{Client: api, SafetyMargin: 0.1, DepositCost: 0.01, Executor: exec}, nil)

		res, err := b.ExecuteSwap(context.Background(), swapRequest)
		require.NoError(t, err)

		assert.True(t, res.Success)
		assert.Equal(t, "0xhash", res.TxHash)
		assert.Equal(t, "0xdeposit", res.RequestID)
		assert.InDelta(t, 0.011, *res.UserFee, 1e-12)
		assert.False(t, api.params[0].Dry)

		assert.Equal(t, chains.Base, sent.ChainID)
		assert.Equal(t, "0xdeposit", sent.To)
		assert.Equal(t, chains.USDCBase, sent.Token)
		assert.Equal(t, "25", sent.Amount)
		assert.Equal(t, int32(6), sent.Decimals)

		assert.Equal(t, [][2]string{{"0xdeposit", "0xhash"}}, api.deposits)
	})

	t.Run("deposit notification failure keeps success", func(t *testing.T) {
		api := &fakeAPI{tokens: testTokens, quote: quote, depositFn: func() error { return errors.New("503") }}
		exec := bridge.ExecutorFunc(func(context.Context, bridge.Payload) (string, error) { return "0xhash", nil })
		b := NewBridge(BridgeConfig{Client: api, Executor: exec}, nil)

		res, _ := b.ExecuteSwap(context.Background(), swapRequest)
		assert.True(t, res.Success)
	})

	t.Run("no executor", func(t *testing.T) {
		b := NewBridge(BridgeConfig{Client: &fakeAPI{tokens: testTokens, quote: quote}}, nil)

		res, err := b.ExecuteSwap(context.Background(), swapRequest)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "requires an executor")
		assert.Contains(t, res.Error, "0xdeposit")
	})

	t.Run("quote failure", func(t *testing.T) {
		b := NewBridge(BridgeConfig{Client: &fakeAPI{tokens: testTokens, quoteErr: errors.New("no liquidity")}}, nil)

		res, err := b.ExecuteSwap(context.Background(), swapRequest)
		require.NoError(t, err)
		assert.Equal(t, "Quote failed: no liquidity", res.Error)
	})

	t.Run("executor failure", func(t *testing.T) {
		exec := bridge.ExecutorFunc(func(context.Context, bridge.Payload) (string, error) {
			return "", bridge.Errorf(bridge.KindRejected, "execution reverted")
		})
		b := NewBridge(BridgeConfig{Client: &fakeAPI{tokens: testTokens, quote: quote}, Executor: exec}, nil)

		res, _ := b.ExecuteSwap(context.Background(), swapRequest)
		assert.False(t, res.Success)
		assert.Equal(t, "rejected", res.ErrorKind)
		assert.Nil(t, res.SponsorCost)
	})
}

func TestBridge_GetStatus(t *testing.T) {
	b := NewBridge(BridgeConfig{Client: &fakeAPI{}}, nil)

	u, err := b.GetStatus(context.Background(), "0xdeposit")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", u.Status)
	assert.True(t, u.Terminal)
	assert.Equal(t, []string{"in", "out"}, u.TxHashes)
}
