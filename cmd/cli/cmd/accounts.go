package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dvloznov/agricole-sync/internal/pipeline"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the accounts saved by previous syncs",
	RunE:  runAccounts,
}

func init() {
	accountsCmd.Flags().Bool(flagAsJSON, false, "print JSON instead of a table")
}

func runAccounts(ccmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(ccmd)
	if err != nil {
		return err
	}
	ctx := commandContext(ccmd, cfg)

	store, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	accs, err := store.ListAccounts(ctx)
	if err != nil {
		return err
	}

	if asJSON, _ := ccmd.Flags().GetBool(flagAsJSON); asJSON {
		return json.NewEncoder(os.Stdout).Encode(accs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tTYPE\tLABEL\tBALANCE")
	for _, a := range accs {
		balance := "-"
		if a.Balance != nil {
			balance = a.Balance.StringFixed(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Number, a.Type, a.Label, balance)
	}
	return w.Flush()
}
