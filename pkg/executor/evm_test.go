package executor

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-swap/config"
	"relay-swap/pkg/bridge"
)

const simulatedChainID = 1337

func oneEther() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func newSimulatedExecutor(t *testing.T) (*EVMExecutor, *simulated.Backend, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{from: {Balance: oneEther()}})
	t.Cleanup(func() { _ = backend.Close() })

	network := config.EVMNetwork{
		PrivateKey: "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
		ChainID:    simulatedChainID,
	}
	exec, err := NewEVMExecutorWithClient("sim", network, backend.Client(), nil)
	require.NoError(t, err)
	return exec, backend, key
}

func TestNewEVMExecutorValidatesConfig(t *testing.T) {
	_, err := NewEVMExecutor(config.EVMConfig{}, "base", nil)
	assert.EqualError(t, err, "network base not configured")

	cfg := config.EVMConfig{Networks: map[string]config.EVMNetwork{"base": {ChainID: 8453}}}
	_, err = NewEVMExecutor(cfg, "base", nil)
	assert.EqualError(t, err, "RPC URL not configured for network base")

	_, err = NewEVMExecutorWithClient("base", config.EVMNetwork{ChainID: 8453}, nil, nil)
	assert.EqualError(t, err, "private key not configured for network base")
}

func TestEVMExecutorNativeTransfer(t *testing.T) {
	exec, backend, key := newSimulatedExecutor(t)
	ctx := context.Background()
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), exec.Address())

	hash, err := exec.Submit(ctx, bridge.Transfer{
		ChainID:  simulatedChainID,
		To:       recipient.Hex(),
		Amount:   "0.25",
		Decimals: 18,
	})
	require.NoError(t, err)
	backend.Commit()

	client := backend.Client()
	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(hash))
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	tx, _, err := client.TransactionByHash(ctx, common.HexToHash(hash))
	require.NoError(t, err)
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())

	balance, err := client.BalanceAt(ctx, recipient, nil)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Div(oneEther(), big.NewInt(4)), balance)
}

func TestEVMExecutorSubmitsTransaction(t *testing.T) {
	exec, backend, _ := newSimulatedExecutor(t)
	ctx := context.Background()
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	hash, err := exec.Submit(ctx, bridge.EVMTransaction{
		ChainID: simulatedChainID,
		From:    exec.Address().Hex(),
		To:      recipient.Hex(),
		Data:    "0x",
		Value:   big.NewInt(1000),
	})
	require.NoError(t, err)
	backend.Commit()

	balance, err := backend.Client().BalanceAt(ctx, recipient, nil)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), balance)
	assert.NotEmpty(t, hash)
}

func TestEVMExecutorInsufficientBalance(t *testing.T) {
	exec, _, _ := newSimulatedExecutor(t)

	_, err := exec.Submit(context.Background(), bridge.Transfer{
		ChainID:  simulatedChainID,
		To:       "0x00000000000000000000000000000000000000aa",
		Amount:   "2",
		Decimals: 18,
	})
	require.Error(t, err)
	assert.Equal(t, bridge.KindInsufficientFunds, bridge.KindOf(err))
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestEVMExecutorRejectsForeignPayloads(t *testing.T) {
	exec, _, _ := newSimulatedExecutor(t)
	ctx := context.Background()

	_, err := exec.Submit(ctx, bridge.Transfer{ChainID: 8453, To: "0x00000000000000000000000000000000000000aa", Amount: "1", Decimals: 18})
	assert.Equal(t, bridge.KindUnsupported, bridge.KindOf(err))

	_, err = exec.Submit(ctx, bridge.EVMTransaction{
		ChainID: simulatedChainID,
		From:    "0x03508bb71268bba25ecacc8f620e01866650532c",
		To:      "0x00000000000000000000000000000000000000aa",
	})
	assert.Equal(t, bridge.KindRejected, bridge.KindOf(err))
}

func TestParseUnits(t *testing.T) {
	got, err := parseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), got)

	got, err = parseUnits("1", 18)
	require.NoError(t, err)
	assert.Equal(t, oneEther(), got)

	_, err = parseUnits("0.0000001", 6)
	assert.ErrorContains(t, err, "more than 6 decimals")

	_, err = parseUnits("0", 6)
	assert.ErrorContains(t, err, "must be positive")

	_, err = parseUnits("one", 6)
	assert.EqualError(t, err, "invalid amount format: one")
}
