package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relay-swap/pkg/types"
)

var (
	swapFlags requestFlags
	noConfirm bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <token> [on <chain>] to <token> [on <chain>]",
	Short: "Perform a sponsored cross-chain swap",
	Long: `Quote, validate and execute a cross-chain swap. The quote is rejected
unless the user fee covers the sponsor's cost plus the safety margin. The
outcome, rejection included, is appended to the audit log.

Executing needs a signing key for the source chain (solana.private_key or
evm.networks.<name>.private_key).

Examples:
  relay-swap swap 1 USDC on solana to ETH on base --recipient 0x123...
  relay-swap swap 0.01 ETH on arbitrum to USDC on base --slippage 0.01 --yes`,
	Args: cobra.MinimumNArgs(4),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)
	swapFlags.register(swapCmd)
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	jsonOutput := jsonFlag(cmd)
	req, err := swapFlags.build(a, args)
	if err != nil {
		return err
	}

	if !noConfirm && !jsonOutput {
		quote, err := fetchQuote(cmd.Context(), a, req, false)
		if err != nil {
			return err
		}
		displayQuote(a.bridge.Name(), req, quote)
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return nil
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Executing swap..."
		s.Start()
	}
	result, err := a.service.ExecuteSwap(cmd.Context(), req)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(result)
	}
	displayResult(result)

	if result.Success && result.RequestID != "" {
		fmt.Println("You can monitor the swap status using:")
		color.Cyan("  relay-swap status %s --watch\n", result.RequestID)
	}
	return nil
}

func displayResult(result *types.SwapResult) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	if result.Success {
		color.Green("                   SWAP SUBMITTED")
	} else {
		color.Red("                    SWAP FAILED")
	}
	fmt.Println(strings.Repeat("=", 60))

	if result.TxHash != "" {
		fmt.Printf("\n  Transaction:       %s\n", color.CyanString("%s", result.TxHash))
	}
	if result.RequestID != "" {
		fmt.Printf("  Request ID:        %s\n", result.RequestID)
	}
	if result.UserFee != nil {
		fmt.Printf("  User Fee:          %v\n", *result.UserFee)
	}
	if result.SponsorCost != nil {
		fmt.Printf("  Sponsor Cost:      %v\n", *result.SponsorCost)
	}
	if result.Error != "" {
		fmt.Printf("\n  Error:             %s\n", color.RedString("%s", result.Error))
		if result.ErrorKind != "" {
			fmt.Printf("  Kind:              %s\n", result.ErrorKind)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
