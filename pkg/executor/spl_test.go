package executor

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-swap/config"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/types"
)

func TestTokenProgramID(t *testing.T) {
	assert.Equal(t, solana.TokenProgramID, TokenProgramID(types.TokenStandardSPL))
	assert.Equal(t, Token2022ProgramID, TokenProgramID(types.TokenStandardToken2022))
	assert.Equal(t, solana.TokenProgramID, TokenProgramID(""))
}

func TestDustAdjustedAmount(t *testing.T) {
	tests := []struct {
		name                       string
		balance, amount, threshold uint64
		want                       uint64
	}{
		{"exact balance", 100, 100, 1, 100},
		{"remainder at threshold is kept", 101, 100, 1, 100},
		{"remainder below threshold is swept", 104, 100, 5, 104},
		{"remainder equal to threshold is kept", 105, 100, 5, 100},
		{"balance short", 50, 100, 5, 100},
		{"zero threshold", 101, 100, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dustAdjustedAmount(tt.balance, tt.amount, tt.threshold))
		})
	}
}

func TestToBaseUnits(t *testing.T) {
	got, err := toBaseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), got)

	got, err = toBaseUnits("0.0000005", 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	got, err = toBaseUnits("-1", 6)
	require.NoError(t, err)
	assert.Zero(t, got)

	_, err = toBaseUnits("abc", 6)
	assert.Error(t, err)

	_, err = toBaseUnits("100000000000000", 9)
	assert.ErrorContains(t, err, "overflows u64")
}

func TestAssociatedTokenAddressMatchesLegacyDerivation(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(chains.USDCSolanaMint)

	got, err := AssociatedTokenAddress(owner, mint, solana.TokenProgramID)
	require.NoError(t, err)
	want, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got2022, err := AssociatedTokenAddress(owner, mint, Token2022ProgramID)
	require.NoError(t, err)
	assert.NotEqual(t, want, got2022)
}

func TestTransferCheckedInstruction(t *testing.T) {
	source, mint, dest, owner := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	ix := transferCheckedInstruction(source, mint, dest, owner, Token2022ProgramID, 1_234_567, 6)
	assert.Equal(t, Token2022ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 10)
	assert.Equal(t, byte(12), data[0])
	assert.Equal(t, uint64(1_234_567), binary.LittleEndian.Uint64(data[1:9]))
	assert.Equal(t, byte(6), data[9])

	accounts := ix.Accounts()
	require.Len(t, accounts, 4)
	assert.Equal(t, source, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, mint, accounts[1].PublicKey)
	assert.Equal(t, dest, accounts[2].PublicKey)
	assert.True(t, accounts[2].IsWritable)
	assert.Equal(t, owner, accounts[3].PublicKey)
	assert.True(t, accounts[3].IsSigner)
}

func TestCreateATAIdempotentInstruction(t *testing.T) {
	payer, owner, mint := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	ata, err := AssociatedTokenAddress(owner, mint, solana.TokenProgramID)
	require.NoError(t, err)

	ix := createATAIdempotentInstruction(payer, ata, owner, mint, solana.TokenProgramID)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, ata, accounts[1].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[5].PublicKey)
}

func TestDetectTokenStandard(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58(chains.USDCSolanaMint)

	t.Run("legacy", func(t *testing.T) {
		fake, srv := newFakeRPC(t)
		fake.result("getAccountInfo", accountOwnedBy(solana.TokenProgramID))

		standard, err := DetectTokenStandard(context.Background(), rpc.New(srv.URL), mint)
		require.NoError(t, err)
		assert.Equal(t, types.TokenStandardSPL, standard)
	})

	t.Run("token-2022", func(t *testing.T) {
		fake, srv := newFakeRPC(t)
		fake.result("getAccountInfo", accountOwnedBy(Token2022ProgramID))

		standard, err := DetectTokenStandard(context.Background(), rpc.New(srv.URL), mint)
		require.NoError(t, err)
		assert.Equal(t, types.TokenStandardToken2022, standard)
	})

	t.Run("missing mint", func(t *testing.T) {
		fake, srv := newFakeRPC(t)
		fake.result("getAccountInfo", withContext(nil))

		_, err := DetectTokenStandard(context.Background(), rpc.New(srv.URL), mint)
		assert.EqualError(t, err, "Mint not found: "+chains.USDCSolanaMint)
	})
}

func tokenBalance(amount string, decimals int) map[string]interface{} {
	return withContext(map[string]interface{}{
		"amount":         amount,
		"decimals":       decimals,
		"uiAmountString": amount,
	})
}

func TestSolanaSubmitTokenTransfer(t *testing.T) {
	fake, srv := newFakeRPC(t)
	exec, _ := newTestSolanaExecutor(t, srv.URL, func(c *config.SolanaConfig) { c.DustThreshold = 10 })
	recipient := solana.NewWallet().PublicKey()

	fake.result("getAccountInfo", accountOwnedBy(solana.TokenProgramID)) // mint
	fake.result("getAccountInfo", withContext(nil))                      // recipient ATA
	fake.result("getTokenAccountBalance", tokenBalance("2500005", 6))
	fake.result("getLatestBlockhash", withContext(map[string]interface{}{
		"blockhash":            solana.Hash{9}.String(),
		"lastValidBlockHeight": 100,
	}))
	fake.result("sendTransaction", solana.Signature{5}.String())

	_, err := exec.Submit(context.Background(), bridge.Transfer{
		ChainID: chains.Solana, To: recipient.String(), Token: chains.USDCSolanaMint, Amount: "2.5", Decimals: 6,
	})
	require.NoError(t, err)

	calls := fake.callsTo("sendTransaction")
	require.Len(t, calls, 1)
	var encoded string
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &encoded))
	sent, err := decodeSerialized(encoded)
	require.NoError(t, err)

	require.Len(t, sent.Message.Instructions, 2)
	create, _ := transactionPrograms(sent)(0)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, create)
	transfer, _ := transactionPrograms(sent)(1)
	assert.Equal(t, solana.TokenProgramID, transfer)

	data := sent.Message.Instructions[1].Data
	assert.Equal(t, byte(12), data[0])
	// 5 base units of dust are swept into the transfer
	assert.Equal(t, uint64(2_500_005), binary.LittleEndian.Uint64(data[1:9]))
}

func TestSolanaSubmitTokenTransferInsufficientBalance(t *testing.T) {
	fake, srv := newFakeRPC(t)
	exec, _ := newTestSolanaExecutor(t, srv.URL, nil)

	fake.result("getAccountInfo", accountOwnedBy(solana.TokenProgramID))
	fake.result("getTokenAccountBalance", tokenBalance("1000000", 6))

	_, err := exec.Submit(context.Background(), bridge.Transfer{
		ChainID: chains.Solana, To: solana.NewWallet().PublicKey().String(), Token: chains.USDCSolanaMint, Amount: "2", Decimals: 6,
	})
	assert.Equal(t, bridge.KindInsufficientFunds, bridge.KindOf(err))
	assert.EqualError(t, err, "insufficient token balance: have 1, need 2")
}

func TestSolanaSubmitTokenTransferRejectsZeroAmount(t *testing.T) {
	fake, srv := newFakeRPC(t)
	exec, _ := newTestSolanaExecutor(t, srv.URL, nil)

	fake.result("getAccountInfo", accountOwnedBy(solana.TokenProgramID))
	fake.result("getTokenAccountBalance", tokenBalance("0", 6))

	_, err := exec.Submit(context.Background(), bridge.Transfer{
		ChainID: chains.Solana, To: solana.NewWallet().PublicKey().String(), Token: chains.USDCSolanaMint, Amount: "0", Decimals: 6,
	})
	assert.EqualError(t, err, "Transfer amount must be positive")
}
