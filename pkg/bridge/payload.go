package bridge

import (
	"math/big"

	"relay-swap/pkg/chains"
)

// Payload is one of EVMTransaction, SolanaTransaction or Transfer
type Payload interface {
	// Chain returns the chain id the payload must be submitted on
	Chain() int64
	payload()
}

// EVMTransaction is a ready-to-sign call on an EVM chain
type EVMTransaction struct {
	ChainID              int64
	From                 string
	To                   string
	Data                 string // 0x-prefixed calldata
	Value                *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

func (t EVMTransaction) Chain() int64 { return t.ChainID }
func (EVMTransaction) payload()       {}

// SolanaAccountMeta is an account reference of a Solana instruction
type SolanaAccountMeta struct {
	PublicKey  string
	IsSigner   bool
	IsWritable bool
}

// SolanaInstruction is a single instruction with hex-encoded data
type SolanaInstruction struct {
	ProgramID string
	Keys      []SolanaAccountMeta
	Data      string
}

// SolanaTransaction is either a serialized (base64) versioned transaction or
// a list of instructions compiled by the executor
type SolanaTransaction struct {
	Serialized   string
	Instructions []SolanaInstruction
	LookupTables []string
}

func (SolanaTransaction) Chain() int64 { return chains.Solana }
func (SolanaTransaction) payload()     {}

// Transfer sends Amount of Token to a deposit address. An empty Token means
// the chain's native asset.
type Transfer struct {
	ChainID  int64
	To       string
	Token    string
	Amount   string // Human units
	Decimals int32
	Memo     string
}

func (t Transfer) Chain() int64 { return t.ChainID }
func (Transfer) payload()       {}

// IsNative reports whether the transfer moves the native asset
func (t Transfer) IsNative() bool {
	return t.Token == "" || chains.IsNative(t.Token)
}
