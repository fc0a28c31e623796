package reconcile

import (
	"fmt"
	"time"

	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/reconcile"

	"github.com/spf13/cobra"
)

var (
	expenseAmount string
	expenseDate   string
	expenseGL     string
	expenseMemo   string
	expenseMember uint
)

// ExpenseCmd represents the expense command
var ExpenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Record a standalone expense ledger entry",
	Long: `Record an expense ledger entry that is not tied to a contribution.

Example:
  church-ledger expense --amount 250 --gl 6100 --memo "Hall rental" --collector 1`,
	Args: cobra.NoArgs,
	RunE: expenseFunc,
}

func init() {
	ExpenseCmd.Flags().UintVar(&collectorID, "collector", 0, "Member id of the person recording the expense")
	ExpenseCmd.Flags().StringVar(&expenseAmount, "amount", "", "Amount spent")
	ExpenseCmd.Flags().StringVar(&expenseDate, "date", "", "Entry date, YYYY-MM-DD (default today)")
	ExpenseCmd.Flags().StringVar(&expenseGL, "gl", "", "GL code")
	ExpenseCmd.Flags().StringVar(&expenseMemo, "memo", "", "Memo")
	ExpenseCmd.Flags().UintVar(&expenseMember, "member", 0, "Member the expense relates to")
}

func expenseFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	amount, err := models.ParseAmount(expenseAmount)
	if err != nil {
		return err
	}
	var date time.Time
	if expenseDate != "" {
		if date, err = dateutils.ParseDate(expenseDate, dateutils.DateLayoutISO); err != nil {
			return err
		}
	}
	collector, err := root.Collector(ctx, collectorID)
	if err != nil {
		return err
	}

	exp := reconcile.Expense{Amount: amount, Date: date, GLCode: expenseGL, Memo: expenseMemo}
	if expenseMember != 0 {
		exp.MemberID = &expenseMember
	}
	entry, err := root.App().GetReconciler().RecordExpense(ctx, exp, collector)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "expense entry %d: %s on %s\n",
		entry.ID, entry.Amount.StringFixed(2), dateutils.ToISODate(entry.EntryDate))
	return nil
}
