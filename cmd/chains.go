package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relay-swap/pkg/chains"
)

type chainRow struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Family   string `json:"family"`
	Executor bool   `json:"executor"`
	Signer   string `json:"signer,omitempty"`
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List known chains and their configured executors",
	Long: `List the chains swap commands can name, and whether a signing key is
configured for each.

Examples:
  relay-swap chains
  relay-swap chains --json`,
	RunE: runChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)
}

func runChains(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	configured := make(map[int64]bool)
	for _, id := range a.router.Chains() {
		configured[id] = true
	}

	rows := make([]chainRow, 0)
	for _, id := range chains.Known() {
		row := chainRow{
			ID:       id,
			Name:     chains.Name(id),
			Family:   string(chains.FamilyOf(id)),
			Executor: configured[id],
		}
		row.Signer, _ = a.router.Signer(id)
		rows = append(rows, row)
	}

	if jsonFlag(cmd) {
		return printJSON(rows)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFAMILY\tEXECUTOR\tSIGNER")
	for _, row := range rows {
		executor := color.HiBlackString("no")
		if row.Executor {
			executor = color.GreenString("yes")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", row.ID, row.Name, row.Family, executor, row.Signer)
	}
	w.Flush()
	fmt.Println()
	return nil
}
