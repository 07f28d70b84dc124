package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"relay-swap/pkg/chains"
	"relay-swap/pkg/types"
)

var commandPattern = regexp.MustCompile(
	`^(\d+\.?\d*)\s+([A-Z0-9]+)(?:\s+ON\s+([A-Z0-9_]+))?\s+TO\s+([A-Z0-9]+)(?:\s+ON\s+([A-Z0-9_]+))?$`,
)

// Command is a parsed swap command. Chains are empty when the command did
// not name them.
type Command struct {
	Amount    float64
	FromToken string
	FromChain string
	ToToken   string
	ToChain   string
}

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 USDC on solana to ETH on base"
//   - "1.5 ETH on arbitrum to USDC on base"
//   - "100 USDC to ETH" (chains come from defaults)
func ParseSwapCommand(command string) (*Command, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")

	matches := commandPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> [on <chain>] to <token> [on <chain>]' (e.g., 'swap 1 USDC on solana to ETH on base')")
	}

	amount, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", matches[1], err)
	}

	return &Command{
		Amount:    amount,
		FromToken: matches[2],
		FromChain: strings.ToLower(matches[3]),
		ToToken:   matches[4],
		ToChain:   strings.ToLower(matches[5]),
	}, nil
}

// ToSwapRequest resolves the command's symbols to addresses. defaultFrom and
// defaultTo are used for chains the command left out.
func (c *Command) ToSwapRequest(defaultFrom, defaultTo string) (types.SwapRequest, error) {
	fromChain := c.FromChain
	if fromChain == "" {
		fromChain = defaultFrom
	}
	toChain := c.ToChain
	if toChain == "" {
		toChain = defaultTo
	}

	fromID := chains.ID(fromChain)
	if fromID == 0 {
		return types.SwapRequest{}, fmt.Errorf("unknown source chain %q", fromChain)
	}
	toID := chains.ID(toChain)
	if toID == 0 {
		return types.SwapRequest{}, fmt.Errorf("unknown destination chain %q", toChain)
	}

	fromToken, err := ResolveToken(c.FromToken, fromID)
	if err != nil {
		return types.SwapRequest{}, err
	}
	toToken, err := ResolveToken(c.ToToken, toID)
	if err != nil {
		return types.SwapRequest{}, err
	}

	return types.SwapRequest{
		FromChain: fromChain,
		ToChain:   toChain,
		FromToken: fromToken,
		ToToken:   toToken,
		Amount:    c.Amount,
	}, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req types.SwapRequest) error {
	if req.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if req.FromChain == "" || req.ToChain == "" {
		return fmt.Errorf("source and destination chains are required")
	}
	if req.FromToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.ToToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if req.UserAddress == "" {
		return fmt.Errorf("user address is required")
	}
	if req.SlippageTolerance < 0 || req.SlippageTolerance > 1 {
		return fmt.Errorf("slippage tolerance must be within [0, 1]")
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"USDC.E": "USDC",
		"WETH":   "ETH",
		"NATIVE": "ETH",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
