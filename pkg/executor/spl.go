package executor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"relay-swap/pkg/bridge"
	"relay-swap/pkg/types"
)

// DefaultDustThreshold is the smallest remainder, in base units, left behind
// by a transfer. Anything smaller is swept along with it.
const DefaultDustThreshold = 1

// Token2022ProgramID is the Token Extensions program
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PQnBqCXEpPxuEb")

// Token program instruction tags
const (
	tokenTransferChecked      byte = 12
	ataCreateIdempotent       byte = 1
	transferCheckedDataLength      = 10
)

// TokenProgramID returns the program that owns mints of standard
func TokenProgramID(standard types.TokenStandard) solana.PublicKey {
	if standard == types.TokenStandardToken2022 {
		return Token2022ProgramID
	}
	return solana.TokenProgramID
}

// DetectTokenStandard reads the mint account owner
func DetectTokenStandard(ctx context.Context, client *rpc.Client, mint solana.PublicKey) (types.TokenStandard, error) {
	info, err := client.GetAccountInfo(ctx, mint)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return "", fmt.Errorf("Mint not found: %s", mint)
		}
		return "", fmt.Errorf("failed to get mint account info: %w", err)
	}
	if info == nil || info.Value == nil {
		return "", fmt.Errorf("Mint not found: %s", mint)
	}
	if info.Value.Owner.Equals(Token2022ProgramID) {
		return types.TokenStandardToken2022, nil
	}
	return types.TokenStandardSPL, nil
}

// AssociatedTokenAddress derives the ATA of owner for mint under the given
// token program
func AssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return addr, nil
}

// createATAIdempotentInstruction creates ata for owner unless it exists
func createATAIdempotentInstruction(payer, ata, owner, mint, tokenProgram solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(payer, true, true),
			solana.NewAccountMeta(ata, true, false),
			solana.NewAccountMeta(owner, false, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
			solana.NewAccountMeta(tokenProgram, false, false),
		},
		[]byte{ataCreateIdempotent},
	)
}

// transferCheckedInstruction works for both token programs
func transferCheckedInstruction(source, mint, destination, owner, tokenProgram solana.PublicKey, amount uint64, decimals uint8) solana.Instruction {
	data := make([]byte, transferCheckedDataLength)
	data[0] = tokenTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	return solana.NewInstruction(
		tokenProgram,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(source, true, false),
			solana.NewAccountMeta(mint, false, false),
			solana.NewAccountMeta(destination, true, false),
			solana.NewAccountMeta(owner, false, true),
		},
		data,
	)
}

// dustAdjustedAmount sends the whole balance when the transfer would leave a
// remainder below threshold
func dustAdjustedAmount(balance, amount, threshold uint64) uint64 {
	if balance >= amount {
		remainder := balance - amount
		if remainder > 0 && remainder < threshold {
			return balance
		}
	}
	return amount
}

// toBaseUnits converts a human amount to base units, rounding half away from
// zero
func toBaseUnits(amount string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	raw := d.Shift(decimals).Round(0)
	if !raw.IsPositive() {
		return 0, nil
	}
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64", amount)
	}
	return raw.BigInt().Uint64(), nil
}

func formatUnits(raw uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals)).String()
}

// splTransfer is the instruction set of a token transfer
type splTransfer struct {
	instructions []solana.Instruction
	amount       uint64
	decimals     uint8
}

// buildTokenTransfer prepares a TransferChecked of amount (human units) of
// mint to recipient, creating the recipient ATA when it is missing
func (s *SolanaExecutor) buildTokenTransfer(ctx context.Context, recipient, mint solana.PublicKey, amount string) (*splTransfer, error) {
	standard, err := DetectTokenStandard(ctx, s.client, mint)
	if err != nil {
		return nil, err
	}
	tokenProgram := TokenProgramID(standard)

	source, err := AssociatedTokenAddress(s.publicKey, mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	destination, err := AssociatedTokenAddress(recipient, mint, tokenProgram)
	if err != nil {
		return nil, err
	}

	balance, err := s.client.GetTokenAccountBalance(ctx, source, s.commitment())
	if err != nil {
		return nil, bridge.NewExecutionError(bridge.KindInsufficientFunds, fmt.Errorf("failed to get token balance: %w", err))
	}
	rawBalance, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token balance: %w", err)
	}
	decimals := balance.Value.Decimals

	rawAmount, err := toBaseUnits(amount, int32(decimals))
	if err != nil {
		return nil, err
	}
	rawAmount = dustAdjustedAmount(rawBalance, rawAmount, s.dustThreshold())
	if rawAmount == 0 {
		return nil, errors.New("Transfer amount must be positive")
	}
	if rawBalance < rawAmount {
		return nil, bridge.Errorf(bridge.KindInsufficientFunds,
			"insufficient token balance: have %s, need %s",
			formatUnits(rawBalance, decimals), formatUnits(rawAmount, decimals))
	}

	var instructions []solana.Instruction
	exists, err := s.accountExists(ctx, destination)
	if err != nil {
		return nil, fmt.Errorf("failed to check destination account: %w", err)
	}
	if !exists {
		instructions = append(instructions, createATAIdempotentInstruction(s.publicKey, destination, recipient, mint, tokenProgram))
	}
	instructions = append(instructions, transferCheckedInstruction(source, mint, destination, s.publicKey, tokenProgram, rawAmount, decimals))

	return &splTransfer{instructions: instructions, amount: rawAmount, decimals: decimals}, nil
}
