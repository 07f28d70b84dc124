package executor

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"relay-swap/pkg/bridge"
)

// JSON-RPC codes
const (
	solanaPreflightFailure = -32002
	evmExecutionReverted   = 3
	evmServerError         = -32000
)

// JupiterInsufficientFunds is Jupiter's custom error 0x1788
const JupiterInsufficientFunds int64 = 6024

// JupiterProgramID is the Jupiter aggregator v6 program
var JupiterProgramID = solana.MustPublicKeyFromBase58("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")

// insufficientFundsCodes maps a program to its custom error codes meaning the
// signer lacks funds
var insufficientFundsCodes = map[solana.PublicKey][]int64{
	solana.SystemProgramID: {1}, // ResultWithNegativeLamports
	solana.TokenProgramID:  {1}, // InsufficientFunds
	Token2022ProgramID:     {1},
	JupiterProgramID:       {JupiterInsufficientFunds},
}

// instructionError is a decoded InstructionError from a preflight result
type instructionError struct {
	index  int
	custom int64
	ok     bool
}

// classifySolana turns an RPC send error into an ExecutionError. programAt
// resolves an instruction index to its program and may be nil.
func classifySolana(err error, programAt func(int) (solana.PublicKey, bool)) error {
	if err == nil {
		return nil
	}
	var execErr *bridge.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return bridge.NewExecutionError(bridge.KindNetwork, err)
	}
	if rpcErr.Code != solanaPreflightFailure {
		return &bridge.ExecutionError{Kind: bridge.KindRejected, Code: int64(rpcErr.Code), Err: err}
	}

	txErr := preflightErr(rpcErr.Data)
	if name, ok := txErr.(string); ok && strings.HasPrefix(name, "InsufficientFunds") {
		return bridge.NewExecutionError(bridge.KindInsufficientFunds, err)
	}
	if m, ok := txErr.(map[string]interface{}); ok {
		for name := range m {
			if strings.HasPrefix(name, "InsufficientFunds") {
				return bridge.NewExecutionError(bridge.KindInsufficientFunds, err)
			}
		}
	}

	ie := decodeInstructionError(txErr)
	if ie.ok {
		if programAt != nil {
			if program, found := programAt(ie.index); found {
				for _, code := range insufficientFundsCodes[program] {
					if code == ie.custom {
						return &bridge.ExecutionError{Kind: bridge.KindInsufficientFunds, Code: ie.custom, Err: err}
					}
				}
			}
		}
		return &bridge.ExecutionError{Kind: bridge.KindSimulationFailed, Code: ie.custom, Err: err}
	}
	return bridge.NewExecutionError(bridge.KindSimulationFailed, err)
}

// preflightErr extracts data.err from a preflight failure
func preflightErr(data interface{}) interface{} {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	return m["err"]
}

// decodeInstructionError reads {"InstructionError": [index, {"Custom": code}]}
func decodeInstructionError(txErr interface{}) instructionError {
	m, ok := txErr.(map[string]interface{})
	if !ok {
		return instructionError{}
	}
	parts, ok := m["InstructionError"].([]interface{})
	if !ok || len(parts) != 2 {
		return instructionError{}
	}
	index, ok := toInt64(parts[0])
	if !ok {
		return instructionError{}
	}
	detail, ok := parts[1].(map[string]interface{})
	if !ok {
		return instructionError{}
	}
	custom, ok := toInt64(detail["Custom"])
	if !ok {
		return instructionError{}
	}
	return instructionError{index: int(index), custom: custom, ok: true}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// transactionPrograms resolves instruction indexes of tx to program ids
func transactionPrograms(tx *solana.Transaction) func(int) (solana.PublicKey, bool) {
	return func(i int) (solana.PublicKey, bool) {
		if tx == nil || i < 0 || i >= len(tx.Message.Instructions) {
			return solana.PublicKey{}, false
		}
		idx := int(tx.Message.Instructions[i].ProgramIDIndex)
		if idx >= len(tx.Message.AccountKeys) {
			return solana.PublicKey{}, false
		}
		return tx.Message.AccountKeys[idx], true
	}
}

// classifyEVM turns an RPC send error into an ExecutionError
func classifyEVM(err error) error {
	if err == nil {
		return nil
	}
	var execErr *bridge.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}

	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return bridge.NewExecutionError(bridge.KindNetwork, err)
	}
	code := int64(rpcErr.ErrorCode())
	switch {
	case code == evmExecutionReverted:
		return &bridge.ExecutionError{Kind: bridge.KindRejected, Code: code, Err: err}
	case code == evmServerError && strings.Contains(rpcErr.Error(), "insufficient funds"):
		return &bridge.ExecutionError{Kind: bridge.KindInsufficientFunds, Code: code, Err: err}
	default:
		return &bridge.ExecutionError{Kind: bridge.KindRejected, Code: code, Err: err}
	}
}
