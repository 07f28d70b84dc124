// Package executor submits normalized bridge payloads to EVM networks and
// Solana.
package executor

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"relay-swap/config"
	"relay-swap/pkg/bridge"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/metrics"
)

// Router dispatches payloads to the executor configured for their chain
type Router struct {
	evm    map[int64]bridge.Executor
	solana bridge.Executor
	logger *zap.Logger
}

var _ bridge.Executor = (*Router)(nil)

// NewRouter creates an empty router
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{evm: make(map[int64]bridge.Executor), logger: logger}
}

// NewRouterFromConfig wires an executor for every network that has a
// signing key configured
func NewRouterFromConfig(cfg *config.Config, logger *zap.Logger) (*Router, error) {
	r := NewRouter(logger)

	if cfg.Solana.PrivateKey != "" {
		sol, err := NewSolanaExecutor(cfg.Solana, logger)
		if err != nil {
			return nil, fmt.Errorf("solana executor: %w", err)
		}
		r.SetSolana(sol)
	}

	for name, network := range cfg.EVM.Networks {
		if network.PrivateKey == "" {
			continue
		}
		exec, err := NewEVMExecutor(cfg.EVM, name, logger)
		if err != nil {
			return nil, fmt.Errorf("evm executor %s: %w", name, err)
		}
		r.SetEVM(network.ChainID, exec)
	}
	return r, nil
}

// SetEVM registers the executor of an EVM chain
func (r *Router) SetEVM(chainID int64, exec bridge.Executor) {
	r.evm[chainID] = exec
}

// SetSolana registers the Solana executor
func (r *Router) SetSolana(exec bridge.Executor) {
	r.solana = exec
}

// Solana returns the Solana executor, or nil
func (r *Router) Solana() bridge.Executor {
	return r.solana
}

// Signer returns the address that signs for chainID, when its executor
// exposes one
func (r *Router) Signer(chainID int64) (string, bool) {
	var exec bridge.Executor
	if chainID == chains.Solana {
		exec = r.solana
	} else {
		exec = r.evm[chainID]
	}

	switch e := exec.(type) {
	case interface{ PublicKey() solana.PublicKey }:
		return e.PublicKey().String(), true
	case interface{ Address() common.Address }:
		return e.Address().Hex(), true
	}
	return "", false
}

// Empty reports whether no executor is registered
func (r *Router) Empty() bool {
	return r.solana == nil && len(r.evm) == 0
}

// Chains lists the chain ids with a registered executor
func (r *Router) Chains() []int64 {
	ids := make([]int64, 0, len(r.evm)+1)
	for id := range r.evm {
		ids = append(ids, id)
	}
	if r.solana != nil {
		ids = append(ids, chains.Solana)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Submit routes payload by variant and chain
func (r *Router) Submit(ctx context.Context, payload bridge.Payload) (string, error) {
	family := chains.FamilyOf(payload.Chain())

	exec, err := r.route(payload)
	if err != nil {
		metrics.ExecutorSubmissions.WithLabelValues(string(family), string(bridge.KindUnsupported)).Inc()
		return "", err
	}

	hash, err := exec.Submit(ctx, payload)
	if err != nil {
		kind := bridge.KindOf(err)
		metrics.ExecutorSubmissions.WithLabelValues(string(family), string(kind)).Inc()
		r.logger.Warn("submission failed",
			zap.Int64("chainId", payload.Chain()),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return "", err
	}

	metrics.ExecutorSubmissions.WithLabelValues(string(family), "ok").Inc()
	r.logger.Info("submitted",
		zap.Int64("chainId", payload.Chain()),
		zap.String("hash", hash))
	return hash, nil
}

func (r *Router) route(payload bridge.Payload) (bridge.Executor, error) {
	switch p := payload.(type) {
	case bridge.SolanaTransaction:
		if r.solana == nil {
			return nil, bridge.Errorf(bridge.KindUnsupported, "no Solana executor configured")
		}
		return r.solana, nil
	case bridge.EVMTransaction:
		return r.evmFor(p.ChainID)
	case bridge.Transfer:
		switch chains.FamilyOf(p.ChainID) {
		case chains.FamilySVM:
			if r.solana == nil {
				return nil, bridge.Errorf(bridge.KindUnsupported, "no Solana executor configured")
			}
			return r.solana, nil
		case chains.FamilyEVM:
			return r.evmFor(p.ChainID)
		}
	}
	return nil, bridge.Errorf(bridge.KindUnsupported, "unsupported payload %T for chain %d", payload, payload.Chain())
}

func (r *Router) evmFor(chainID int64) (bridge.Executor, error) {
	exec, ok := r.evm[chainID]
	if !ok {
		return nil, bridge.Errorf(bridge.KindUnsupported, "no executor configured for chain %d", chainID)
	}
	return exec, nil
}

// Close releases executor connections
func (r *Router) Close() {
	for _, exec := range r.evm {
		if c, ok := exec.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
