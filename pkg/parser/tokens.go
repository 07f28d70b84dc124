package parser

import (
	"fmt"
	"sort"
	"strings"

	"relay-swap/pkg/chains"
)

// NativeSOL is Relay's currency id for native SOL
const NativeSOL = "11111111111111111111111111111111"

// Token is a well-known token on one chain
type Token struct {
	Symbol   string `json:"symbol"`
	ChainID  int64  `json:"chainId"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

var knownTokens = []Token{
	{Symbol: "SOL", ChainID: chains.Solana, Address: NativeSOL, Decimals: 9},
	{Symbol: "WSOL", ChainID: chains.Solana, Address: chains.WrappedSOLMint, Decimals: 9},
	{Symbol: "USDC", ChainID: chains.Solana, Address: chains.USDCSolanaMint, Decimals: chains.USDCDecimals},
	{Symbol: "ETH", ChainID: chains.Base, Address: chains.NativeAddress, Decimals: 18},
	{Symbol: "USDC", ChainID: chains.Base, Address: chains.USDCBase, Decimals: chains.USDCDecimals},
	{Symbol: "ETH", ChainID: chains.Arbitrum, Address: chains.NativeAddress, Decimals: 18},
	{Symbol: "USDC", ChainID: chains.Arbitrum, Address: chains.USDCArbitrum, Decimals: chains.USDCDecimals},
	{Symbol: "ETH", ChainID: chains.Optimism, Address: chains.NativeAddress, Decimals: 18},
	{Symbol: "USDC", ChainID: chains.Optimism, Address: chains.USDCOptimism, Decimals: chains.USDCDecimals},
	{Symbol: "ETH", ChainID: chains.Ethereum, Address: chains.NativeAddress, Decimals: 18},
	{Symbol: "POL", ChainID: chains.Polygon, Address: chains.NativeAddress, Decimals: 18},
}

// Tokens returns the known tokens, optionally limited to one chain (0 for
// all), ordered by chain and symbol
func Tokens(chainID int64) []Token {
	out := make([]Token, 0, len(knownTokens))
	for _, t := range knownTokens {
		if chainID == 0 || t.ChainID == chainID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChainID != out[j].ChainID {
			return out[i].ChainID < out[j].ChainID
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// LookupToken finds a known token by symbol on a chain
func LookupToken(symbol string, chainID int64) (Token, bool) {
	symbol = NormalizeTokenSymbol(symbol)
	for _, t := range knownTokens {
		if t.ChainID == chainID && t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

// ResolveToken maps a symbol to its address on chainID. Anything that already
// looks like an address is passed through.
func ResolveToken(symbol string, chainID int64) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if looksLikeAddress(symbol) {
		return symbol, nil
	}
	if t, ok := LookupToken(symbol, chainID); ok {
		return t.Address, nil
	}
	// Every EVM chain's native asset is the zero address
	if chains.FamilyOf(chainID) == chains.FamilyEVM && chains.IsNative(NormalizeTokenSymbol(symbol)) {
		return chains.NativeAddress, nil
	}
	return "", fmt.Errorf("unknown token %s on chain %d", strings.ToUpper(symbol), chainID)
}

func looksLikeAddress(s string) bool {
	if strings.HasPrefix(s, "0x") && len(s) == 42 {
		return true
	}
	return len(s) >= 32 && len(s) <= 44 && !strings.ContainsAny(s, "0OIl_ ")
}
