// Package reconcile implements the reconcile, ignore and expense commands.
package reconcile

import (
	"errors"
	"fmt"

	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/internal/common"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/reconcile"

	"github.com/spf13/cobra"
)

var (
	collectorID uint
	memberID    uint
	paymentType string
	donorName   string
	donorLabel  string
	existingID  uint
	stopOnError bool
)

// Cmd represents the reconcile command
var Cmd = &cobra.Command{
	Use:   "reconcile BANK_TX_ID",
	Short: "Post a pending bank record as a contribution",
	Long: `Post a pending bank record as a financial transaction with its income
ledger entry, and mark the record matched.

Example:
  church-ledger reconcile 42 --type membership_due --member 7 --collector 1
  church-ledger reconcile 43 --type donation --donor-name "Acme Corp" --donor-label Business --collector 1`,
	Args: cobra.ExactArgs(1),
	RunE: reconcileFunc,
}

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Reconcile every decided row of a CSV file",
	Long: `Reconcile the rows of a decision file, typically an edited "pending --csv"
export. Rows without a payment type are skipped. Each row is committed on its
own; a failed row does not undo the others.`,
	Args: cobra.ExactArgs(1),
	RunE: batchFunc,
}

func init() {
	Cmd.PersistentFlags().UintVar(&collectorID, "collector", 0, "Member id of the person recording the payment")
	Cmd.Flags().UintVar(&memberID, "member", 0, "Member the payment belongs to")
	Cmd.Flags().StringVar(&paymentType, "type", "", "Payment type (membership_due, tithe, donation, ...)")
	Cmd.Flags().StringVar(&donorName, "donor-name", "", "Donor name when the payer is not a member")
	Cmd.Flags().StringVar(&donorLabel, "donor-label", "", "Donor kind when the payer is not a member")
	Cmd.Flags().UintVar(&existingID, "existing", 0, "Already entered transaction to attach the record to")
	batchCmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first failed row")
	Cmd.AddCommand(batchCmd)
}

func reconcileFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	bankTxID, err := root.ParseID(args[0])
	if err != nil {
		return err
	}
	pt, err := models.ParsePaymentType(paymentType)
	if err != nil {
		return err
	}
	collector, err := root.Collector(ctx, collectorID)
	if err != nil {
		return err
	}

	req := reconcile.Request{
		BankTxID:             bankTxID,
		PaymentType:          pt,
		ManualDonorName:      donorName,
		ManualDonorTypeLabel: donorLabel,
	}
	if memberID != 0 {
		req.MemberID = &memberID
	}
	if existingID != 0 {
		req.ExistingTransactionID = &existingID
	}

	ft, err := root.App().GetReconciler().Reconcile(ctx, req, collector)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "bank record %d posted as transaction %d (%s %s)\n",
		bankTxID, ft.ID, ft.Amount.StringFixed(2), ft.PaymentType.Label())
	return nil
}

func batchFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	app := root.App()
	reqs, err := common.ReadDecisions(args[0], app.GetConfig().DelimiterRune(), app.GetLogger())
	if err != nil {
		return err
	}
	collector, err := root.Collector(ctx, collectorID)
	if err != nil {
		return err
	}

	results, err := app.GetReconciler().BatchReconcile(ctx, reqs, collector, reconcile.BatchOptions{StopOnError: stopOnError})
	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "bank record %d: FAILED: %v\n", r.BankTxID, r.Err)
			continue
		}
		fmt.Fprintf(out, "bank record %d: transaction %d\n", r.BankTxID, r.Transaction.ID)
	}

	var batchErr *reconcile.BatchError
	if errors.As(err, &batchErr) {
		return fmt.Errorf("%d of %d rows failed", batchErr.Failed, len(reqs))
	}
	return err
}
