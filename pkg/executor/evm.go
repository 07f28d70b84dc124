package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"relay-swap/config"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
)

// ERC20 transfer and balanceOf ABI
const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}
]`

const (
	nativeTransferGas = uint64(21000)
	erc20TransferGas  = uint64(100000)
)

var parsedERC20 = mustParseABI(erc20ABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
	}
	return parsed
}

// EVMClient is the subset of ethclient.Client used by the executor
type EVMClient interface {
	ethereum.ChainStateReader
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.GasPricer1559
	ethereum.PendingStateReader
	ethereum.TransactionSender
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// EVMExecutor signs and sends transactions on one EVM network
type EVMExecutor struct {
	networkName string
	network     config.EVMNetwork
	client      EVMClient
	privateKey  *ecdsa.PrivateKey
	from        common.Address
	logger      *zap.Logger
}

var _ bridge.Executor = (*EVMExecutor)(nil)

// NewEVMExecutor dials the RPC endpoint of a configured network
func NewEVMExecutor(cfg config.EVMConfig, networkName string, logger *zap.Logger) (*EVMExecutor, error) {
	network, exists := cfg.Networks[networkName]
	if !exists {
		return nil, fmt.Errorf("network %s not configured", networkName)
	}
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for network %s", networkName)
	}

	client, err := ethclient.Dial(network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return NewEVMExecutorWithClient(networkName, network, client, logger)
}

// NewEVMExecutorWithClient creates an executor over an existing client
func NewEVMExecutorWithClient(networkName string, network config.EVMNetwork, client EVMClient, logger *zap.Logger) (*EVMExecutor, error) {
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for network %s", networkName)
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(network.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EVMExecutor{
		networkName: networkName,
		network:     network,
		client:      client,
		privateKey:  privateKey,
		from:        crypto.PubkeyToAddress(privateKey.PublicKey),
		logger: logger.With(
			zap.String("family", string(chains.FamilyEVM)),
			zap.String("network", networkName)),
	}, nil
}

// ChainID returns the configured chain id
func (e *EVMExecutor) ChainID() int64 {
	return e.network.ChainID
}

// Address returns the signer address
func (e *EVMExecutor) Address() common.Address {
	return e.from
}

// Submit signs and sends an EVMTransaction or Transfer payload and returns
// the transaction hash
func (e *EVMExecutor) Submit(ctx context.Context, payload bridge.Payload) (string, error) {
	if payload.Chain() != e.network.ChainID {
		return "", bridge.Errorf(bridge.KindUnsupported, "payload for chain %d submitted to %s (chain %d)",
			payload.Chain(), e.networkName, e.network.ChainID)
	}

	var (
		call *ethereum.CallMsg
		err  error
	)
	switch p := payload.(type) {
	case bridge.EVMTransaction:
		call, err = e.callFromTransaction(p)
	case bridge.Transfer:
		call, err = e.callFromTransfer(ctx, p)
	default:
		return "", bridge.Errorf(bridge.KindUnsupported, "evm executor cannot submit %T", payload)
	}
	if err != nil {
		return "", err
	}

	tx, err := e.buildTransaction(ctx, call, payload)
	if err != nil {
		return "", err
	}

	if err := e.client.SendTransaction(ctx, tx); err != nil {
		return "", classifyEVM(fmt.Errorf("failed to send transaction: %w", err))
	}
	e.logger.Info("transaction sent", zap.String("hash", tx.Hash().Hex()))
	return tx.Hash().Hex(), nil
}

func (e *EVMExecutor) callFromTransaction(p bridge.EVMTransaction) (*ethereum.CallMsg, error) {
	if p.From != "" && !strings.EqualFold(p.From, e.from.Hex()) {
		return nil, bridge.Errorf(bridge.KindRejected, "transaction sender %s does not match signer %s", p.From, e.from.Hex())
	}
	if !common.IsHexAddress(p.To) {
		return nil, fmt.Errorf("invalid recipient address: %s", p.To)
	}
	to := common.HexToAddress(p.To)

	var data []byte
	if p.Data != "" && p.Data != "0x" {
		decoded, err := hexutil.Decode(p.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid calldata: %w", err)
		}
		data = decoded
	}
	value := new(big.Int)
	if p.Value != nil {
		value.Set(p.Value)
	}
	return &ethereum.CallMsg{From: e.from, To: &to, Value: value, Data: data}, nil
}

func (e *EVMExecutor) callFromTransfer(ctx context.Context, t bridge.Transfer) (*ethereum.CallMsg, error) {
	if !common.IsHexAddress(t.To) {
		return nil, fmt.Errorf("invalid recipient address: %s", t.To)
	}
	to := common.HexToAddress(t.To)

	amount, err := parseUnits(t.Amount, t.Decimals)
	if err != nil {
		return nil, err
	}

	if t.IsNative() {
		balance, err := e.client.BalanceAt(ctx, e.from, nil)
		if err != nil {
			return nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get balance: %w", err))
		}
		if balance.Cmp(amount) < 0 {
			return nil, bridge.Errorf(bridge.KindInsufficientFunds,
				"insufficient balance: have %s wei, need %s wei", balance, amount)
		}
		return &ethereum.CallMsg{From: e.from, To: &to, Value: amount}, nil
	}

	if !common.IsHexAddress(t.Token) {
		return nil, fmt.Errorf("invalid token contract address: %s", t.Token)
	}
	token := common.HexToAddress(t.Token)

	balance, err := e.erc20Balance(ctx, token, e.from)
	if err != nil {
		return nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get token balance: %w", err))
	}
	if balance.Cmp(amount) < 0 {
		return nil, bridge.Errorf(bridge.KindInsufficientFunds,
			"insufficient token balance: have %s, need %s",
			decimal.NewFromBigInt(balance, -t.Decimals), decimal.NewFromBigInt(amount, -t.Decimals))
	}

	data, err := parsedERC20.Pack("transfer", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer data: %w", err)
	}
	return &ethereum.CallMsg{From: e.from, To: &token, Value: big.NewInt(0), Data: data}, nil
}

// buildTransaction creates and signs a dynamic fee transaction for call
func (e *EVMExecutor) buildTransaction(ctx context.Context, call *ethereum.CallMsg, payload bridge.Payload) (*types.Transaction, error) {
	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get nonce: %w", err))
	}

	gasLimit, err := e.gasLimit(ctx, call)
	if err != nil {
		return nil, err
	}

	tipCap, feeCap, err := e.fees(ctx, payload)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(e.network.ChainID),
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        call.To,
		Value:     call.Value,
		Data:      call.Data,
	})

	signer := types.LatestSignerForChainID(big.NewInt(e.network.ChainID))
	signedTx, err := types.SignTx(tx, signer, e.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signedTx, nil
}

// gasLimit uses the configured limit, else the estimate plus 20%
func (e *EVMExecutor) gasLimit(ctx context.Context, call *ethereum.CallMsg) (uint64, error) {
	if e.network.GasLimit != nil {
		return *e.network.GasLimit, nil
	}
	estimated, err := e.client.EstimateGas(ctx, *call)
	if err != nil {
		classified := classifyEVM(fmt.Errorf("failed to estimate gas: %w", err))
		if bridge.KindOf(classified) != bridge.KindNetwork {
			return 0, classified
		}
		if len(call.Data) == 0 {
			return nativeTransferGas, nil
		}
		return erc20TransferGas, nil
	}
	return estimated * 120 / 100, nil
}

// fees returns the tip and fee caps. Payload values win, then the
// configured gas price, then the node's suggestion.
func (e *EVMExecutor) fees(ctx context.Context, payload bridge.Payload) (*big.Int, *big.Int, error) {
	var tipCap, feeCap *big.Int
	if tx, ok := payload.(bridge.EVMTransaction); ok {
		tipCap, feeCap = tx.MaxPriorityFeePerGas, tx.MaxFeePerGas
	}
	if feeCap == nil && e.network.GasPrice != nil {
		feeCap = big.NewInt(*e.network.GasPrice)
	}

	if tipCap == nil {
		suggested, err := e.client.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get gas tip cap: %w", err))
		}
		tipCap = suggested
	}
	if feeCap == nil {
		head, err := e.client.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get latest header: %w", err))
		}
		baseFee := head.BaseFee
		if baseFee == nil {
			price, err := e.client.SuggestGasPrice(ctx)
			if err != nil {
				return nil, nil, bridge.NewExecutionError(bridge.KindNetwork, fmt.Errorf("failed to get gas price: %w", err))
			}
			baseFee = price
		}
		feeCap = new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tipCap)
	}
	if tipCap.Cmp(feeCap) > 0 {
		tipCap = new(big.Int).Set(feeCap)
	}
	return tipCap, feeCap, nil
}

// erc20Balance gets the balance of an ERC20 token for an address
func (e *EVMExecutor) erc20Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := parsedERC20.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}
	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	return new(big.Int).SetBytes(result), nil
}

// parseUnits converts a human amount to the token's smallest unit
func parseUnits(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %s", amount)
	}
	raw := d.Shift(decimals)
	if !raw.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, decimals)
	}
	if !raw.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %s", amount)
	}
	return raw.BigInt(), nil
}

// Close closes the client connection
func (e *EVMExecutor) Close() {
	if c, ok := e.client.(interface{ Close() }); ok {
		c.Close()
	}
}
