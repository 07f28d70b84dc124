package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relay-swap/pkg/chains"
	"relay-swap/pkg/parser"
	"relay-swap/pkg/types"
)

// requestFlags are shared by quote and swap
type requestFlags struct {
	fromChain string
	toChain   string
	user      string
	recipient string
	slippage  float64
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fromChain, "from-chain", "solana", "Source chain when the command does not name one")
	cmd.Flags().StringVar(&f.toChain, "to-chain", "base", "Destination chain when the command does not name one")
	cmd.Flags().StringVar(&f.user, "user", "", "Depositor address on the source chain (defaults to the configured signer)")
	cmd.Flags().StringVar(&f.recipient, "recipient", "", "Receiver address on the destination chain")
	cmd.Flags().Float64Var(&f.slippage, "slippage", 0, "Slippage tolerance as a fraction (0.01 = 1%)")
}

// build parses args into a request, filling the user and recipient from the
// configured signers when not given
func (f *requestFlags) build(a *app, args []string) (types.SwapRequest, error) {
	command, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return types.SwapRequest{}, err
	}
	req, err := command.ToSwapRequest(f.fromChain, f.toChain)
	if err != nil {
		return types.SwapRequest{}, err
	}

	req.UserAddress = f.user
	if req.UserAddress == "" {
		req.UserAddress, _ = a.router.Signer(chains.ID(req.FromChain))
	}
	req.Recipient = f.recipient
	if req.Recipient == "" {
		req.Recipient, _ = a.router.Signer(chains.ID(req.ToChain))
	}
	req.SlippageTolerance = f.slippage

	if err := parser.ValidateSwapRequest(req); err != nil {
		return types.SwapRequest{}, err
	}
	return req, nil
}

var quoteFlags requestFlags

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <token> [on <chain>] to <token> [on <chain>]",
	Short: "Get a sponsored quote without executing",
	Long: `Request a quote and show the expected output, the user fee and the
sponsor's cost. Nothing is executed or audited.

Examples:
  relay-swap quote 1 USDC on solana to ETH on base --user <solana-addr>
  relay-swap quote 0.01 ETH on arbitrum to USDC on base --json`,
	Args: cobra.MinimumNArgs(4),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteFlags.register(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := quoteFlags.build(a, args)
	if err != nil {
		return err
	}

	quote, err := fetchQuote(cmd.Context(), a, req, jsonFlag(cmd))
	if err != nil {
		return err
	}

	if jsonFlag(cmd) {
		return printJSON(map[string]interface{}{
			"provider": a.bridge.Name(),
			"request":  req,
			"quote":    quote,
		})
	}
	displayQuote(a.bridge.Name(), req, quote)
	return nil
}

func fetchQuote(ctx context.Context, a *app, req types.SwapRequest, quiet bool) (*types.QuoteResult, error) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !quiet {
		s.Suffix = " Fetching quote..."
		s.Start()
	}
	quote, err := a.service.GetQuote(ctx, req)
	if !quiet {
		s.Stop()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return quote, nil
}

func displayQuote(provider string, req types.SwapRequest, quote *types.QuoteResult) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Provider:          %s\n", provider)
	fmt.Printf("  From:              %v %s on %s\n", req.Amount, color.YellowString("%s", req.FromToken), req.FromChain)
	fmt.Printf("  To:                ~%v %s on %s\n", quote.ExpectedOutput, color.YellowString("%s", req.ToToken), req.ToChain)
	if quote.RouteAvailable {
		fmt.Printf("  Route:             %s\n", color.GreenString("available"))
	} else {
		fmt.Printf("  Route:             %s\n", color.RedString("unavailable"))
	}
	fmt.Printf("  User Fee:          %v\n", quote.UserFee)
	fmt.Printf("  Sponsor Cost:      %v\n", quote.SponsorCost)
	if quote.RequestID != "" {
		fmt.Printf("  Request ID:        %s\n", color.CyanString("%s", quote.RequestID))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
