// Package dues implements the dues command.
package dues

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/internal/dues"

	"github.com/spf13/cobra"
)

var (
	year      int
	household bool
	refresh   bool
)

// Cmd represents the dues command
var Cmd = &cobra.Command{
	Use:   "dues MEMBER_ID",
	Short: "Show a member's dues for a year",
	Long: `Show the month by month dues position of a member for a year, together
with the member's other contributions. With --household every member of the
household is shown with household totals.`,
	Args: cobra.ExactArgs(1),
	RunE: duesFunc,
}

func init() {
	Cmd.Flags().IntVar(&year, "year", 0, "Year (default current year)")
	Cmd.Flags().BoolVar(&household, "household", false, "Show the whole household")
	Cmd.Flags().BoolVar(&refresh, "refresh-snapshot", false, "Also rebuild the stored yearly payment snapshot")
}

func duesFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	memberID, err := root.ParseID(args[0])
	if err != nil {
		return err
	}
	y := year
	if y == 0 {
		y = time.Now().In(root.App().GetConfig().Location()).Year()
	}
	engine := root.App().GetDues()
	out := cmd.OutOrStdout()

	if refresh {
		if _, err := engine.RecalculateSnapshot(ctx, memberID, y); err != nil {
			return err
		}
	}

	if !household {
		d, err := engine.Details(ctx, memberID, y)
		if err != nil {
			return err
		}
		return printDetails(out, d)
	}

	sum, err := engine.HouseholdDetails(ctx, memberID, y)
	if err != nil {
		return err
	}
	for _, d := range sum.Members {
		if err := printDetails(out, d); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Household total due %s, collected %s, outstanding %s, all giving %s\n",
		sum.TotalAmountDue.StringFixed(2), sum.DuesCollected.StringFixed(2),
		sum.OutstandingDues.StringFixed(2), sum.GrandTotal.StringFixed(2))
	return nil
}

func printDetails(out io.Writer, d *dues.Details) error {
	fmt.Fprintf(out, "%s (#%d) %d\n", d.MemberName, d.MemberID, d.Year)
	if d.Household.HeadID != 0 && d.Household.HeadID != d.MemberID {
		fmt.Fprintf(out, "Household of %s\n", d.Household.HeadName)
	}
	fmt.Fprintf(out, "Pledge %s, monthly %s over %d months: due %s, collected %s (%s%%), outstanding %s\n",
		d.YearlyPledge.StringFixed(2), d.MonthlyDue.StringFixed(2), d.MonthsRequired,
		d.TotalAmountDue.StringFixed(2), d.DuesCollected.StringFixed(2),
		d.DuesProgress.StringFixed(2), d.OutstandingDues.StringFixed(2))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tSTATUS\tDUE\tPAID")
	for _, m := range d.Months {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Month.String()[:3], m.Status, m.Due.StringFixed(2), m.Paid.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	c := d.Contributions
	fmt.Fprintf(out, "Remaining this year %s. Donations %s, pledges %s, tithes %s, offerings %s, other %s. Total giving %s\n",
		d.FutureDues.StringFixed(2), c.Donation.StringFixed(2), c.Pledge.StringFixed(2),
		c.Tithe.StringFixed(2), c.Offering.StringFixed(2), c.Other.StringFixed(2), d.GrandTotal.StringFixed(2))
	return nil
}
