// Package proof runs a real Solana to EVM swap through Relay and records
// the quote, deposit and final status in a JSON proof file.
package proof

import (
	"math"
	"strconv"
	"strings"

	"relay-swap/config"
	"relay-swap/pkg/chains"
	"relay-swap/pkg/types"
)

// Defaults used when neither a flag nor the environment sets a field
const (
	DefaultUser      = "11111111111111111111111111111111"
	DefaultRecipient = "0x0000000000000000000000000000000000000001"
	DefaultChain     = "8453"
	DefaultAmount    = 1.0
)

// Options are explicit overrides, typically from CLI flags
type Options struct {
	User      string
	Recipient string
	Chain     string
	Amount    string
	FromToken string
	ToToken   string
}

// BuildRequest resolves a Solana to EVM request. Options win over env, env
// wins over the built-in defaults.
func BuildRequest(opts Options, env config.ProofConfig) types.SwapRequest {
	chainID := chains.IDOrDefault(first(opts.Chain, env.DestinationChain, DefaultChain), chains.Base)

	return types.SwapRequest{
		FromChain:   "solana",
		ToChain:     strconv.FormatInt(chainID, 10),
		FromToken:   first(opts.FromToken, env.FromToken, chains.USDCSolanaMint),
		ToToken:     first(opts.ToToken, env.DestinationToken, chains.NativeAddress),
		Amount:      amount(opts.Amount, env.Amount),
		UserAddress: first(opts.User, env.UserSolanaAddress, DefaultUser),
		Recipient:   first(opts.Recipient, env.UserAddress, DefaultRecipient),
	}
}

func first(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// amount parses the flag value, falling back to env and then to 1 for
// anything unparsable or zero
func amount(flag string, env float64) float64 {
	v := env
	if flag != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(flag), 64)
		if err != nil {
			parsed = 0
		}
		v = parsed
	}
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultAmount
	}
	return v
}
