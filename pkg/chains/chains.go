// Package chains holds chain identifiers and well-known token addresses
// shared by the bridge adapters, executors and the proof flow.
package chains

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Relay chain ids
const (
	Solana   int64 = 792703809
	Base     int64 = 8453
	Arbitrum int64 = 42161
	Optimism int64 = 10
	Ethereum int64 = 1
	Polygon  int64 = 137
)

// NativeAddress is the currency id used for a chain's native asset
const NativeAddress = "0x0000000000000000000000000000000000000000"

// USDC addresses (Circle), 6 decimals everywhere
const (
	USDCSolanaMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDCBase       = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	USDCArbitrum   = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	USDCOptimism   = "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"
	USDCDecimals   = 6
)

// WrappedSOLMint is the native mint for wrapped SOL
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

// Family groups chains by virtual machine
type Family string

const (
	FamilyEVM     Family = "evm"
	FamilySVM     Family = "svm"
	FamilyUnknown Family = "unknown"
)

var aliases = map[string]int64{
	"solana":       Solana,
	"sol":          Solana,
	"svm":          Solana,
	"base":         Base,
	"arbitrum":     Arbitrum,
	"arbitrum_one": Arbitrum,
	"arb":          Arbitrum,
	"optimism":     Optimism,
	"op":           Optimism,
	"ethereum":     Ethereum,
	"mainnet":      Ethereum,
	"eth":          Ethereum,
	"polygon":      Polygon,
	"pol":          Polygon,
}

var names = map[int64]string{
	Solana:   "solana",
	Base:     "base",
	Arbitrum: "arbitrum",
	Optimism: "optimism",
	Ethereum: "ethereum",
	Polygon:  "polygon",
}

// Name returns the canonical name of a known chain id, or ""
func Name(id int64) string {
	return names[id]
}

// Known returns the ids of every named chain in ascending order
func Known() []int64 {
	ids := make([]int64, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// USDCByChain maps EVM chain ids to their USDC contract
var USDCByChain = map[int64]string{
	Base:     USDCBase,
	Arbitrum: USDCArbitrum,
	Optimism: USDCOptimism,
}

var whitespace = regexp.MustCompile(`\s+`)

// ID resolves a chain name, alias or numeric string to a chain id.
// Unknown names resolve to 0.
func ID(chain string) int64 {
	chain = strings.TrimSpace(chain)
	if n, ok := leadingInt(chain); ok {
		return n
	}
	key := whitespace.ReplaceAllString(strings.ToLower(chain), "_")
	return aliases[key]
}

// IDOrDefault resolves chain like ID but falls back to def for unknown names
func IDOrDefault(chain string, def int64) int64 {
	if id := ID(chain); id != 0 {
		return id
	}
	return def
}

// FamilyOf returns the VM family of a chain id
func FamilyOf(id int64) Family {
	switch id {
	case Solana:
		return FamilySVM
	case 0:
		return FamilyUnknown
	default:
		return FamilyEVM
	}
}

// IsNative reports whether token names the chain's native asset
func IsNative(token string) bool {
	t := strings.TrimSpace(token)
	return t == "ETH" || t == "native" || strings.EqualFold(t, NativeAddress)
}

// leadingInt parses the decimal prefix of s, so "8453" and "8453abc" both
// resolve to 8453.
func leadingInt(s string) (int64, bool) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
