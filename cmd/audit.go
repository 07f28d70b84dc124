package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	auditLimit int
	auditClear bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the swap audit log",
	Long: `Show the append-only audit log of executed and rejected swaps.

Examples:
  relay-swap audit
  relay-swap audit --limit 10 --json
  relay-swap audit --clear`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 0, "Show only the last n entries")
	auditCmd.Flags().BoolVar(&auditClear, "clear", false, "Remove every entry")
}

func runAudit(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if auditClear {
		if err := a.auditLog.Clear(); err != nil {
			return err
		}
		printSuccess("Audit log cleared: " + a.auditLog.Path())
		return nil
	}

	entries, err := a.auditLog.Entries()
	if err != nil {
		return err
	}
	if auditLimit > 0 && auditLimit < len(entries) {
		entries = entries[len(entries)-auditLimit:]
	}

	if jsonFlag(cmd) {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Printf("\nNo audit entries in %s\n\n", a.auditLog.Path())
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tROUTE\tAMOUNT\tFEE\tSPONSOR COST\tOUTCOME")
	for _, e := range entries {
		outcome := ""
		if e.Result != nil {
			if e.Result.Success {
				outcome = color.GreenString("ok %s", e.Result.TxHash)
			} else {
				outcome = color.RedString("%s", e.Result.Error)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s -> %s\t%v\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Action,
			e.Request.FromChain, e.Request.ToChain,
			e.Request.Amount,
			optional(e.Fee),
			optional(e.SponsorCost),
			outcome,
		)
	}
	w.Flush()
	fmt.Printf("\n%d entries in %s\n\n", len(entries), a.auditLog.Path())
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%v", *v)
}
