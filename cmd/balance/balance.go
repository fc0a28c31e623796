// Package balance implements the balance command.
package balance

import (
	"fmt"

	"fjacquet/church-ledger/cmd/root"

	"github.com/spf13/cobra"
)

// Cmd represents the balance command
var Cmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the current account balance",
	Long: `Show the current account balance: the most recent statement balance plus
every bank row imported after it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := root.Context(cmd)
		defer cancel()

		bal, err := root.App().GetBalance().CurrentBalance(ctx)
		if err != nil {
			return err
		}
		if !bal.Valid {
			fmt.Fprintln(cmd.OutOrStdout(), "balance unknown: no statement row carries a balance yet")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", bal.Decimal.StringFixed(2), root.App().GetConfig().Organization.Currency)
		return nil
	},
}
