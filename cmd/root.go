package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay-swap",
	Short: "A CLI for sponsored cross-chain swaps through Relay",
	Long: `relay-swap quotes and executes cross-chain swaps through the Relay bridge
(or NEAR Intents 1Click). Every swap is checked against the sponsor's fee
policy before execution and recorded in an append-only audit log.

Examples:
  relay-swap quote 1 USDC on solana to ETH on base
  relay-swap swap 1 USDC on solana to ETH on base --recipient 0x123...
  relay-swap status <request-id> --watch
  relay-swap proof
  relay-swap serve`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s %v\n\n", color.RedString("Error:"), err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString("%s", message))
}
