package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relay-swap/pkg/chains"
	"relay-swap/pkg/parser"
)

var (
	filterChain  string
	filterSymbol string
)

// tokenRow is a token as listed, whichever provider it came from
type tokenRow struct {
	Symbol   string `json:"symbol"`
	Chain    string `json:"chain"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List supported tokens",
	Long: `List the tokens that swap commands resolve by symbol. With the 1Click
provider the list is fetched from the API.

Examples:
  relay-swap list-tokens
  relay-swap list-tokens --chain solana
  relay-swap list-tokens --symbol USDC`,
	RunE: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by blockchain")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) error {
	jsonOutput := jsonFlag(cmd)

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []tokenRow
	if a.oneClick != nil {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Fetching supported tokens..."
			s.Start()
		}
		tokens, err := a.oneClick.Tokens(cmd.Context())
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			return err
		}
		for _, t := range tokens {
			rows = append(rows, tokenRow{Symbol: t.Symbol, Chain: t.Blockchain, Address: t.ContractAddress, Decimals: t.Decimals})
		}
	} else {
		for _, t := range parser.Tokens(0) {
			rows = append(rows, tokenRow{Symbol: t.Symbol, Chain: chainLabel(t.ChainID), Address: t.Address, Decimals: t.Decimals})
		}
	}

	filtered := rows[:0]
	for _, row := range rows {
		if filterChain != "" && !strings.EqualFold(row.Chain, filterChain) {
			continue
		}
		if filterSymbol != "" && !strings.Contains(strings.ToUpper(row.Symbol), strings.ToUpper(filterSymbol)) {
			continue
		}
		filtered = append(filtered, row)
	}

	if jsonOutput {
		return printJSON(filtered)
	}
	displayTokens(filtered)
	return nil
}

// chainLabel names a chain id by its first alias, or the id itself
func chainLabel(id int64) string {
	if name := chains.Name(id); name != "" {
		return name
	}
	return strconv.FormatInt(id, 10)
}

func displayTokens(tokens []tokenRow) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	tokensByChain := make(map[string][]tokenRow)
	for _, token := range tokens {
		tokensByChain[token.Chain] = append(tokensByChain[token.Chain], token)
	}

	names := make([]string, 0, len(tokensByChain))
	for chain := range tokensByChain {
		names = append(names, chain)
	}
	sort.Strings(names)

	for _, chain := range names {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range tokensByChain[chain] {
			address := token.Address
			if len(address) > 44 {
				address = address[:41] + "..."
			}
			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString("%s", token.Symbol),
				token.Decimals,
				color.HiBlackString("%s", address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(names))
}
