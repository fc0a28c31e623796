// Package pending implements the pending command.
package pending

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/internal/common"
	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"

	"github.com/spf13/cobra"
)

var (
	status   string
	from     string
	to       string
	bankType string
	search   string
	offset   int
	limit    int
	csvFile  string
)

// Cmd represents the pending command
var Cmd = &cobra.Command{
	Use:   "pending",
	Short: "List bank records awaiting reconciliation",
	Long: `List bank records, newest first, with a suggested member when the payer
name has been matched before.

With --csv the page is written to a file whose member_id and payment_type
columns can be filled in and passed to "reconcile batch".`,
	Args: cobra.NoArgs,
	RunE: pendingFunc,
}

func init() {
	Cmd.Flags().StringVar(&status, "status", string(models.StatusPending), "Record status (PENDING, MATCHED, IGNORED)")
	Cmd.Flags().StringVar(&from, "from", "", "First date, YYYY-MM-DD")
	Cmd.Flags().StringVar(&to, "to", "", "Last date, YYYY-MM-DD")
	Cmd.Flags().StringVar(&bankType, "type", "", "Bank type (ZELLE, CHECK, ...)")
	Cmd.Flags().StringVar(&search, "search", "", "Text contained in the description or payer")
	Cmd.Flags().IntVar(&offset, "offset", 0, "Records to skip")
	Cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	Cmd.Flags().StringVar(&csvFile, "csv", "", "Write the page to this CSV file")
}

func pendingFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	filter := store.BankTxFilter{
		Status: models.BankTransactionStatus(strings.ToUpper(status)),
		Type:   bankType,
		Search: search,
	}
	var err error
	if filter.From, err = optionalDate(from); err != nil {
		return err
	}
	if filter.To, err = optionalDate(to); err != nil {
		return err
	}

	app := root.App()
	page, err := app.GetReconciler().ListPending(ctx, filter, store.Page{Offset: offset, Limit: limit})
	if err != nil {
		return err
	}

	if csvFile != "" {
		if err := common.WritePendingCSVFile(csvFile, page.Items, app.GetConfig().DelimiterRune(), app.GetLogger()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d records to %s\n", len(page.Items), page.Total, csvFile)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tTYPE\tPAYER\tSUGGESTED\tDESCRIPTION")
	for _, row := range common.PendingRows(page.Items) {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.BankTxID, row.Date, row.Amount, row.Type, row.Payer, row.SuggestedMember, row.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d-%d of %d\n", page.Offset+min(1, len(page.Items)), page.Offset+len(page.Items), page.Total)
	return nil
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := dateutils.ParseDate(raw, dateutils.DateLayoutISO)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
