package executor

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"relay-swap/config"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
)

// SolFeeBuffer is the SOL kept aside for fees and rent when checking balances
const SolFeeBuffer = 0.02

const confirmPollInterval = 500 * time.Millisecond

// SolanaExecutor signs and sends transactions on Solana
type SolanaExecutor struct {
	config     config.SolanaConfig
	client     *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	logger     *zap.Logger
}

var _ bridge.Executor = (*SolanaExecutor)(nil)

// NewSolanaExecutor creates a new Solana executor
func NewSolanaExecutor(cfg config.SolanaConfig, logger *zap.Logger) (*SolanaExecutor, error) {
	if cfg.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana")
	}
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for Solana")
	}

	// Parse private key (Base58 encoded)
	privateKey, err := solana.PrivateKeyFromBase58(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SolanaExecutor{
		config:     cfg,
		client:     rpc.New(cfg.RPCUrl),
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
		logger:     logger.With(zap.String("family", string(chains.FamilySVM))),
	}, nil
}

// PublicKey returns the signer address
func (s *SolanaExecutor) PublicKey() solana.PublicKey {
	return s.publicKey
}

// Submit signs and sends a SolanaTransaction or Transfer payload and returns
// its signature
func (s *SolanaExecutor) Submit(ctx context.Context, payload bridge.Payload) (string, error) {
	tx, err := s.prepare(ctx, payload)
	if err != nil {
		return "", err
	}

	sig, err := s.send(ctx, tx)
	if err != nil {
		return "", err
	}

	if s.config.ConfirmTimeout > 0 {
		if err := s.confirm(ctx, sig); err != nil {
			return sig.String(), err
		}
	}
	return sig.String(), nil
}

// prepare builds and signs the transaction for payload
func (s *SolanaExecutor) prepare(ctx context.Context, payload bridge.Payload) (*solana.Transaction, error) {
	var (
		tx  *solana.Transaction
		err error
	)
	switch p := payload.(type) {
	case bridge.SolanaTransaction:
		switch {
		case p.Serialized != "":
			tx, err = decodeSerialized(p.Serialized)
		case len(p.Instructions) > 0:
			tx, err = s.compile(ctx, p)
		default:
			return nil, bridge.Errorf(bridge.KindUnsupported, "transaction has no serialized payload or instructions")
		}
	case bridge.Transfer:
		tx, err = s.transfer(ctx, p)
	default:
		return nil, bridge.Errorf(bridge.KindUnsupported, "solana executor cannot submit %T", payload)
	}
	if err != nil {
		return nil, err
	}

	if err := s.sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// decodeSerialized reads a base64 wire transaction, legacy or versioned
func decodeSerialized(serialized string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, fmt.Errorf("invalid serialized transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// parseInstructions converts payload instructions, decoding hex data
func parseInstructions(ixs []bridge.SolanaInstruction) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(ixs))
	for i, ix := range ixs {
		programID, err := solana.PublicKeyFromBase58(ix.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: invalid program id: %w", i, err)
		}
		data, err := hex.DecodeString(strings.TrimPrefix(ix.Data, "0x"))
		if err != nil {
			return nil, fmt.Errorf("instruction %d: invalid data: %w", i, err)
		}
		accounts := make(solana.AccountMetaSlice, 0, len(ix.Keys))
		for _, key := range ix.Keys {
			pk, err := solana.PublicKeyFromBase58(key.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("instruction %d: invalid account %q: %w", i, key.PublicKey, err)
			}
			accounts = append(accounts, solana.NewAccountMeta(pk, key.IsWritable, key.IsSigner))
		}
		out = append(out, solana.NewInstruction(programID, accounts, data))
	}
	return out, nil
}

// compile builds a transaction from instructions, as a v0 message when
// lookup tables are given
func (s *SolanaExecutor) compile(ctx context.Context, p bridge.SolanaTransaction) (*solana.Transaction, error) {
	instructions, err := parseInstructions(p.Instructions)
	if err != nil {
		return nil, err
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(s.publicKey)}
	if len(p.LookupTables) > 0 {
		tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(p.LookupTables))
		for _, addr := range p.LookupTables {
			key, err := solana.PublicKeyFromBase58(addr)
			if err != nil {
				return nil, fmt.Errorf("invalid lookup table %q: %w", addr, err)
			}
			state, err := addresslookuptable.GetAddressLookupTable(ctx, s.client, key)
			if err != nil {
				// Missing tables are skipped, the message still compiles
				// with static keys.
				s.logger.Warn("failed to load address lookup table",
					zap.String("table", addr), zap.Error(err))
				continue
			}
			tables[key] = state.Addresses
		}
		if len(tables) > 0 {
			opts = append(opts, solana.TransactionAddressTables(tables))
		}
	}

	return s.newTransaction(ctx, instructions, opts...)
}

// transfer builds a native SOL or SPL transfer
func (s *SolanaExecutor) transfer(ctx context.Context, t bridge.Transfer) (*solana.Transaction, error) {
	recipient, err := solana.PublicKeyFromBase58(t.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}

	if isNativeSOL(t.Token) {
		lamports, err := toBaseUnits(t.Amount, 9)
		if err != nil {
			return nil, err
		}
		if lamports == 0 {
			return nil, errors.New("Transfer amount must be positive")
		}
		if err := s.requireLamports(ctx, lamports+5000); err != nil {
			return nil, err
		}
		ix := system.NewTransferInstruction(lamports, s.publicKey, recipient).Build()
		return s.newTransaction(ctx, []solana.Instruction{ix}, solana.TransactionPayer(s.publicKey))
	}

	mint, err := solana.PublicKeyFromBase58(t.Token)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint address: %w", err)
	}
	spl, err := s.buildTokenTransfer(ctx, recipient, mint, t.Amount)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("token transfer",
		zap.String("mint", mint.String()),
		zap.Uint64("amount", spl.amount),
		zap.Uint8("decimals", spl.decimals))
	return s.newTransaction(ctx, spl.instructions, solana.TransactionPayer(s.publicKey))
}

func isNativeSOL(token string) bool {
	return token == "" || chains.IsNative(token) ||
		strings.EqualFold(token, "SOL") || token == solana.SystemProgramID.String()
}

func (s *SolanaExecutor) newTransaction(ctx context.Context, instructions []solana.Instruction, opts ...solana.TransactionOption) (*solana.Transaction, error) {
	recent, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get latest blockhash: %w", err))
	}
	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

func (s *SolanaExecutor) sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// send submits tx, retrying once without preflight when simulation fails and
// the retry is enabled. Insufficient funds are never retried.
func (s *SolanaExecutor) send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := s.sendWithOpts(ctx, tx, s.config.SkipPreflight)
	if err == nil {
		return sig, nil
	}
	if s.config.SkipPreflight || !s.config.RetrySkipPreflight || bridge.KindOf(err) != bridge.KindSimulationFailed {
		return solana.Signature{}, err
	}

	s.logger.Warn("simulation failed, retrying with skipPreflight", zap.Error(err))
	return s.sendWithOpts(ctx, tx, true)
}

func (s *SolanaExecutor) sendWithOpts(ctx context.Context, tx *solana.Transaction, skipPreflight bool) (solana.Signature, error) {
	opts := rpc.TransactionOpts{
		SkipPreflight:       skipPreflight,
		PreflightCommitment: s.commitment(),
	}
	sig, err := s.client.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, classifySolana(fmt.Errorf("failed to send transaction: %w", err), transactionPrograms(tx))
	}
	return sig, nil
}

// confirm polls the signature until it reaches the configured commitment
func (s *SolanaExecutor) confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		res, err := s.client.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(res.Value) > 0 && res.Value[0] != nil {
			status := res.Value[0]
			if status.Err != nil {
				return bridge.Errorf(bridge.KindRejected, "transaction %s failed: %v", sig, status.Err)
			}
			if reached(status.ConfirmationStatus, s.commitment()) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return bridge.Errorf(bridge.KindNetwork, "transaction %s not confirmed within %s", sig, s.config.ConfirmTimeout)
		case <-ticker.C:
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

// CheckBalance verifies the signer holds enough SOL for fees, plus the
// amount itself when fromToken is wrapped SOL
func (s *SolanaExecutor) CheckBalance(ctx context.Context, fromToken string, amount float64) error {
	needed := decimal.NewFromFloat(SolFeeBuffer)
	if fromToken == chains.WrappedSOLMint {
		needed = needed.Add(decimal.NewFromFloat(amount))
	}
	return s.requireLamports(ctx, uint64(needed.Shift(9).IntPart()))
}

func (s *SolanaExecutor) requireLamports(ctx context.Context, lamports uint64) error {
	balance, err := s.client.GetBalance(ctx, s.publicKey, s.commitment())
	if err != nil {
		return bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get balance: %w", err))
	}
	if balance.Value < lamports {
		return bridge.Errorf(bridge.KindInsufficientFunds,
			"Wallet has %s SOL; need ~%s SOL",
			lamportsToSOL(balance.Value).StringFixed(4), lamportsToSOL(lamports).StringFixed(4))
	}
	return nil
}

func lamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Shift(-9)
}

// accountExists checks if an account exists on-chain
func (s *SolanaExecutor) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := s.client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return info.Value != nil, nil
}

func (s *SolanaExecutor) dustThreshold() uint64 {
	if s.config.DustThreshold <= 0 {
		return DefaultDustThreshold
	}
	return uint64(s.config.DustThreshold)
}

// commitment returns the commitment level from config
func (s *SolanaExecutor) commitment() rpc.CommitmentType {
	switch strings.ToLower(s.config.Commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
