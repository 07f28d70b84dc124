package proof

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay-swap/config"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/bridge/relay"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/executor"
	"relay-swap/pkg/types"
)

type fakeRelay struct {
	quote     *relay.QuoteResponse
	quoteErr  error
	statuses  []relay.Status
	statusErr error

	gotQuote    *relay.QuoteRequest
	statusCalls int
}

func (f *fakeRelay) GetQuote(_ context.Context, req *relay.QuoteRequest) (*relay.QuoteResponse, error) {
	f.gotQuote = req
	return f.quote, f.quoteErr
}

func (f *fakeRelay) GetStatus(_ context.Context, requestID string) (*relay.StatusResponse, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	i := f.statusCalls
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	f.statusCalls++
	return &relay.StatusResponse{Status: f.statuses[i], RequestID: requestID}, nil
}

type fakeDepositor struct {
	key        solana.PublicKey
	balanceErr error
	submitErr  error
	submitted  []bridge.Payload
}

func (f *fakeDepositor) Submit(_ context.Context, p bridge.Payload) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, p)
	return "5igSig", nil
}

func (f *fakeDepositor) CheckBalance(context.Context, string, float64) error {
	return f.balanceErr
}

func (f *fakeDepositor) PublicKey() solana.PublicKey {
	return f.key
}

func transactionQuote() *relay.QuoteResponse {
	return &relay.QuoteResponse{
		Steps: []relay.Step{{
			ID:        "deposit",
			Kind:      relay.StepKindTransaction,
			RequestID: "0xabc",
			Items: []relay.StepItem{{
				Data: &relay.StepItemData{Serialized: "AQID"},
			}},
		}},
	}
}

func readDocument(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestBuildRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req := BuildRequest(Options{}, config.ProofConfig{})

		assert.Equal(t, "solana", req.FromChain)
		assert.Equal(t, "8453", req.ToChain)
		assert.Equal(t, chains.USDCSolanaMint, req.FromToken)
		assert.Equal(t, chains.NativeAddress, req.ToToken)
		assert.InDelta(t, 1, req.Amount, 1e-12)
		assert.Equal(t, DefaultUser, req.UserAddress)
		assert.Equal(t, DefaultRecipient, req.Recipient)
	})

	t.Run("env over defaults", func(t *testing.T) {
		req := BuildRequest(Options{}, config.ProofConfig{
			UserSolanaAddress: "So1User",
			UserAddress:       "0xuser",
			DestinationChain:  "arbitrum",
			Amount:            2.5,
		})

		assert.Equal(t, "42161", req.ToChain)
		assert.InDelta(t, 2.5, req.Amount, 1e-12)
		assert.Equal(t, "So1User", req.UserAddress)
		assert.Equal(t, "0xuser", req.Recipient)
	})

	t.Run("options over env", func(t *testing.T) {
		req := BuildRequest(Options{User: "Flag", Chain: "10", Amount: "3"}, config.ProofConfig{
			UserSolanaAddress: "So1User",
			DestinationChain:  "arbitrum",
			Amount:            2.5,
		})

		assert.Equal(t, "10", req.ToChain)
		assert.InDelta(t, 3, req.Amount, 1e-12)
		assert.Equal(t, "Flag", req.UserAddress)
	})

	t.Run("unknown chain and bad amount fall back", func(t *testing.T) {
		req := BuildRequest(Options{Chain: "atlantis", Amount: "lots"}, config.ProofConfig{Amount: 4})

		assert.Equal(t, "8453", req.ToChain)
		assert.InDelta(t, 1, req.Amount, 1e-12)
	})
}

func TestRunWithoutDepositor(t *testing.T) {
	out := filepath.Join(t.TempDir(), "proof.json")
	api := &fakeRelay{quote: transactionQuote()}
	r := NewRunner(api, "", nil, out, nil)

	doc, err := r.Run(context.Background(), BuildRequest(Options{}, config.ProofConfig{}))
	require.NoError(t, err)

	assert.Equal(t, "0xabc", doc.RequestID)
	assert.Equal(t, "https://api.relay.link/intents/status/v3?requestId=0xabc", doc.VerificationURL)
	assert.Equal(t, "1000000", api.gotQuote.Amount)
	assert.Len(t, doc.Instructions, 2)
	assert.Contains(t, doc.Instructions[1], "proof status 0xabc --poll")

	written := readDocument(t, out)
	assert.Equal(t, "Cross-chain swap proof: Solana → chain 8453 (Relay)", written["description"])
	assert.Contains(t, written, "status")
	assert.Nil(t, written["status"])
	assert.NotContains(t, written, "depositTxSignature")
}

func TestRunQuoteError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "proof.json")
	r := NewRunner(&fakeRelay{quoteErr: errors.New("no routes found")}, "", nil, out, nil)

	_, err := r.Run(context.Background(), BuildRequest(Options{}, config.ProofConfig{}))
	assert.ErrorContains(t, err, "no routes found")
	assert.NoFileExists(t, out)
}

func TestRunDeposit(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	req := BuildRequest(Options{User: key.String()}, config.ProofConfig{})

	tests := []struct {
		name         string
		depositor    *fakeDepositor
		wantSig      string
		wantContains string
	}{
		{
			name:         "sent",
			depositor:    &fakeDepositor{key: key},
			wantSig:      "5igSig",
			wantContains: "Signature: 5igSig",
		},
		{
			name: "insufficient SOL",
			depositor: &fakeDepositor{key: key, balanceErr: bridge.Errorf(bridge.KindInsufficientFunds,
				"Wallet has 0.0010 SOL; need ~0.0200 SOL")},
			wantContains: "Wallet has 0.0010 SOL; need ~0.0200 SOL. Fund and re-run, or sign in Phantom.",
		},
		{
			name: "jupiter insufficient funds",
			depositor: &fakeDepositor{key: key, submitErr: &bridge.ExecutionError{
				Kind: bridge.KindInsufficientFunds, Code: executor.JupiterInsufficientFunds, Err: errors.New("custom program error: 0x1788"),
			}},
			wantContains: "Inline send failed: Jupiter 0x1788 – try in Phantom with proof file or get a fresh quote.",
		},
		{
			name:         "simulation failure",
			depositor:    &fakeDepositor{key: key, submitErr: bridge.Errorf(bridge.KindSimulationFailed, "blockhash not found")},
			wantContains: "Inline send failed: blockhash not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "proof.json")
			r := NewRunner(&fakeRelay{quote: transactionQuote()}, "", tt.depositor, out, nil)

			doc, err := r.Run(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSig, doc.DepositTxSignature)
			assert.Contains(t, doc.Instructions, tt.wantContains)
			if tt.wantSig == "" {
				assert.Contains(t, doc.Instructions[len(doc.Instructions)-1], "--poll")
			} else {
				require.Len(t, tt.depositor.submitted, 1)
				assert.Equal(t, bridge.SolanaTransaction{Serialized: "AQID"}, tt.depositor.submitted[0])
			}
		})
	}
}

func TestRunSkipsNonTransactionStep(t *testing.T) {
	out := filepath.Join(t.TempDir(), "proof.json")
	quote := transactionQuote()
	quote.Steps[0].Kind = relay.StepKindSignature
	dep := &fakeDepositor{}
	r := NewRunner(&fakeRelay{quote: quote}, "", dep, out, nil)

	doc, err := r.Run(context.Background(), BuildRequest(Options{}, config.ProofConfig{}))
	require.NoError(t, err)
	assert.Empty(t, dep.submitted)
	assert.Empty(t, doc.DepositTxSignature)
}

func TestRecordStatus(t *testing.T) {
	t.Run("updates existing proof", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "proof.json")
		require.NoError(t, os.WriteFile(out, []byte(`{"requestId":"0xabc","status":null,"custom":{"kept":true}}`), 0644))
		r := NewRunner(&fakeRelay{statuses: []relay.Status{relay.StatusPending}}, "", nil, out, nil)

		update, written, err := r.RecordStatus(context.Background(), "0xabc", false, nil)
		require.NoError(t, err)
		assert.True(t, written)
		assert.Equal(t, "pending", update.Status)

		doc := readDocument(t, out)
		assert.Equal(t, "pending", doc["status"])
		assert.NotEmpty(t, doc["statusRecordedAt"])
		assert.Equal(t, map[string]interface{}{"kept": true}, doc["custom"])
	})

	t.Run("polls until terminal", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "proof.json")
		require.NoError(t, os.WriteFile(out, []byte(`{}`), 0644))
		api := &fakeRelay{statuses: []relay.Status{relay.StatusWaiting, relay.StatusPending, relay.StatusSuccess}}
		r := NewRunner(api, "", nil, out, nil)
		r.pollInterval = time.Millisecond

		var seen []string
		update, written, err := r.RecordStatus(context.Background(), "0xabc", true, func(u *types.StatusUpdate) {
			seen = append(seen, u.Status)
		})
		require.NoError(t, err)
		assert.True(t, written)
		assert.Equal(t, "success", update.Status)
		assert.Equal(t, []string{"waiting", "pending", "success"}, seen)
	})

	t.Run("poll timeout keeps last status", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "proof.json")
		require.NoError(t, os.WriteFile(out, []byte(`{}`), 0644))
		r := NewRunner(&fakeRelay{statuses: []relay.Status{relay.StatusPending}}, "", nil, out, nil)
		r.pollInterval = time.Millisecond
		r.pollTimeout = 20 * time.Millisecond

		update, _, err := r.RecordStatus(context.Background(), "0xabc", true, nil)
		require.NoError(t, err)
		assert.Equal(t, "pending", update.Status)
		assert.Equal(t, "pending", readDocument(t, out)["status"])
	})

	t.Run("missing proof file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "proof.json")
		r := NewRunner(&fakeRelay{statuses: []relay.Status{relay.StatusRefunded}}, "", nil, out, nil)

		update, written, err := r.RecordStatus(context.Background(), "0xabc", false, nil)
		require.NoError(t, err)
		assert.False(t, written)
		assert.Equal(t, "refunded", update.Status)
		assert.NoFileExists(t, out)
	})

	t.Run("fetch error", func(t *testing.T) {
		r := NewRunner(&fakeRelay{statusErr: errors.New("503")}, "", nil, filepath.Join(t.TempDir(), "p.json"), nil)

		_, _, err := r.RecordStatus(context.Background(), "0xabc", false, nil)
		assert.ErrorContains(t, err, "failed to fetch status: 503")
	})
}
