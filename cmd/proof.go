package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relay-swap/pkg/executor"
	"relay-swap/pkg/proof"
	"relay-swap/pkg/types"
)

var (
	proofOpts   proof.Options
	proofOutput string
	proofPoll   bool
)

var proofCmd = &cobra.Command{
	Use:   "proof",
	Short: "Run a real Solana to EVM swap through Relay and write a proof file",
	Long: `Request a Relay quote for a Solana to EVM swap, sign and send the deposit
when SOLANA_PRIVATE_KEY is set, and write the quote, request id and deposit
signature to a JSON proof file.

Flags override USER_SOLANA_ADDRESS, USER_ADDRESS, DESTINATION_CHAIN, AMOUNT,
FROM_TOKEN and DESTINATION_TOKEN.

Examples:
  relay-swap proof
  relay-swap proof --amount 2 --chain arbitrum --recipient 0x123...
  relay-swap proof status <request-id> --poll`,
	Args: cobra.NoArgs,
	RunE: runProof,
}

var proofStatusCmd = &cobra.Command{
	Use:   "status <request-id>",
	Short: "Record the Relay status of a request in the proof file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProofStatus,
}

func init() {
	rootCmd.AddCommand(proofCmd)
	proofCmd.AddCommand(proofStatusCmd)

	proofCmd.PersistentFlags().StringVarP(&proofOutput, "output", "o", "", "Proof file path (default proof.output_file)")

	proofCmd.Flags().StringVar(&proofOpts.User, "user", "", "Solana depositor address")
	proofCmd.Flags().StringVar(&proofOpts.Recipient, "recipient", "", "Receiver address on the destination chain")
	proofCmd.Flags().StringVar(&proofOpts.Chain, "chain", "", "Destination chain name or id")
	proofCmd.Flags().StringVar(&proofOpts.Amount, "amount", "", "Amount of the source token")
	proofCmd.Flags().StringVar(&proofOpts.FromToken, "from-token", "", "Source token mint")
	proofCmd.Flags().StringVar(&proofOpts.ToToken, "to-token", "", "Destination token address")

	proofStatusCmd.Flags().BoolVar(&proofPoll, "poll", false, "Poll until the status is final (up to 60s)")
}

func newProofRunner(a *app, withDepositor bool) (*proof.Runner, error) {
	if a.relayClient == nil {
		return nil, fmt.Errorf("proof runs against Relay; set provider to %q", "relay")
	}

	var depositor proof.Depositor
	if withDepositor && a.cfg.Solana.PrivateKey != "" {
		sol, err := executor.NewSolanaExecutor(a.cfg.Solana, a.logger)
		if err != nil {
			return nil, err
		}
		depositor = sol
	}

	output := proofOutput
	if output == "" {
		output = a.cfg.Proof.OutputFile
	}
	return proof.NewRunner(a.relayClient, a.relayClient.BaseURL(), depositor, output, a.logger), nil
}

func runProof(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := newProofRunner(a, true)
	if err != nil {
		return err
	}

	req := proof.BuildRequest(proofOpts, a.cfg.Proof)
	doc, err := runner.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	if jsonFlag(cmd) {
		return printJSON(doc)
	}

	fmt.Println()
	fmt.Printf("  Proof written to:   %s\n", color.CyanString("%s", runner.OutputFile()))
	fmt.Printf("  Request ID:         %s\n", doc.RequestID)
	fmt.Printf("  Verification URL:   %s\n", doc.VerificationURL)
	if doc.DepositTxSignature != "" {
		fmt.Printf("  Deposit Signature:  %s\n", color.GreenString("%s", doc.DepositTxSignature))
	}
	for _, line := range doc.Instructions {
		fmt.Printf("  - %s\n", line)
	}
	fmt.Println()
	return nil
}

func runProofStatus(cmd *cobra.Command, args []string) error {
	requestID := args[0]

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	runner, err := newProofRunner(a, false)
	if err != nil {
		return err
	}

	update, written, err := runner.RecordStatus(cmd.Context(), requestID, proofPoll, func(u *types.StatusUpdate) {
		if !jsonFlag(cmd) {
			fmt.Println("Status:", getColoredStatus(u.Status))
		}
	})
	if err != nil {
		return err
	}

	if jsonFlag(cmd) {
		return printJSON(map[string]interface{}{
			"status":  update,
			"file":    runner.OutputFile(),
			"written": written,
		})
	}
	if !written {
		fmt.Printf("Proof file not found. Status: %s\n", update.Status)
		return nil
	}
	printSuccess(fmt.Sprintf("Updated %s with status: %s", runner.OutputFile(), update.Status))
	return nil
}
