package reconcile

import (
	"fmt"

	"fjacquet/church-ledger/cmd/root"

	"github.com/spf13/cobra"
)

// IgnoreCmd represents the ignore command
var IgnoreCmd = &cobra.Command{
	Use:   "ignore BANK_TX_ID...",
	Short: "Mark pending bank records as not needing reconciliation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := root.Context(cmd)
		defer cancel()

		for _, arg := range args {
			id, err := root.ParseID(arg)
			if err != nil {
				return err
			}
			if err := root.App().GetReconciler().Ignore(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bank record %d ignored\n", id)
		}
		return nil
	},
}
