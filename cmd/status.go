package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relay-swap/pkg/tracker"
	"relay-swap/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
	watchTimeout  time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status <request-id>",
	Short: "Check the status of a swap",
	Long: `Check the execution status of a swap by its Relay request id (or its
1Click deposit address).

Examples:
  relay-swap status 0x1234...abcd
  relay-swap status 0x1234...abcd --watch
  relay-swap status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Poll until the swap reaches a final status")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
	statusCmd.Flags().DurationVar(&watchTimeout, "timeout", 0, "Give up watching after this long (0 waits indefinitely)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	requestID := args[0]
	jsonOutput := jsonFlag(cmd)

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if watchStatus {
		return watchSwapStatus(cmd.Context(), a, requestID, jsonOutput)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking swap status..."
		s.Start()
	}
	update, err := a.status.GetStatus(cmd.Context(), requestID)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(update)
	}
	displayStatus(update)
	return nil
}

func watchSwapStatus(ctx context.Context, a *app, requestID string, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !jsonOutput {
		fmt.Printf("\nWatching swap status (Request ID: %s)\n", color.CyanString("%s", requestID))
		fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n", watchInterval)
	}

	final, err := tracker.Watch(ctx, a.status, requestID, tracker.Options{
		Interval:  time.Duration(watchInterval) * time.Second,
		Timeout:   watchTimeout,
		MaxErrors: 3,
	}, func(update *types.StatusUpdate) {
		if jsonOutput {
			_ = printJSON(update)
			return
		}
		displayStatus(update)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, tracker.ErrTimeout) && final != nil {
		color.Yellow("Stopped watching: status still %s after %s", final.Status, watchTimeout)
		return nil
	}
	return err
}

func displayStatus(update *types.StatusUpdate) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Request ID:      %s\n", color.CyanString("%s", update.RequestID))
	fmt.Printf("  Status:          %s\n", getColoredStatus(update.Status))
	if !update.UpdatedAt.IsZero() {
		fmt.Printf("  Last Updated:    %s\n", update.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	for _, hash := range update.TxHashes {
		fmt.Printf("  Tx:              %s\n", color.HiBlackString("%s", hash))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SUCCESS", "COMPLETED":
		return color.GreenString("%s", status)
	case "WAITING", "PENDING_DEPOSIT", "PENDING", "PROCESSING":
		return color.YellowString("%s", status)
	case "FAILURE", "FAILED", "REFUNDED":
		return color.RedString("%s", status)
	case "INCOMPLETE_DEPOSIT":
		return color.MagentaString("%s", status)
	default:
		return status
	}
}
