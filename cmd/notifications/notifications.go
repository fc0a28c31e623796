// Package notifications implements the notifications command.
package notifications

import (
	"fmt"
	"text/tabwriter"

	"fjacquet/church-ledger/cmd/root"
	"fjacquet/church-ledger/internal/emailmatch"

	"github.com/spf13/cobra"
)

var (
	limit       int
	collectorID uint
	messageIDs  []string
)

// Cmd represents the notifications command
var Cmd = &cobra.Command{
	Use:   "notifications",
	Short: "Match payment notification emails to members",
	Long: `Read payment notification emails from the configured mail directory and
propose a member for each payment. Nothing is posted until the proposals are
committed by message id.`,
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show proposed matches without posting",
	Args:  cobra.NoArgs,
	RunE:  previewFunc,
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Post confirmed proposals",
	Long: `Post the proposals named with --message. Each posting also teaches the memo
table which member the memo belongs to.

Example:
  church-ledger notifications commit --message abc123@mail.example --collector 1`,
	Args: cobra.NoArgs,
	RunE: commitFunc,
}

func init() {
	Cmd.PersistentFlags().IntVar(&limit, "limit", 50, "Messages to read, newest first")
	commitCmd.Flags().UintVar(&collectorID, "collector", 0, "Member id of the person recording the payments")
	commitCmd.Flags().StringSliceVar(&messageIDs, "message", nil, "Message id to commit (repeatable)")
	Cmd.AddCommand(previewCmd, commitCmd)
}

func previewFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	matcher, err := root.App().GetMatcher()
	if err != nil {
		return err
	}
	proposals, err := matcher.Preview(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE\tDATE\tAMOUNT\tMEMBER\tMATCH\tCREATE\tMEMO")
	for _, p := range proposals {
		amount := "-"
		if p.Amount.Valid {
			amount = p.Amount.Decimal.StringFixed(2)
		}
		create := "no"
		switch {
		case p.WouldCreate:
			create = "yes"
		case p.AlreadyPosted:
			create = "posted"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.MessageID, p.Date.Format("2006-01-02"), amount, p.MatchedMemberName, p.MatchSource, create, p.Memo)
	}
	return w.Flush()
}

func commitFunc(cmd *cobra.Command, args []string) error {
	ctx, cancel := root.Context(cmd)
	defer cancel()

	if len(messageIDs) == 0 {
		return fmt.Errorf("--message is required: name the proposals to commit")
	}
	matcher, err := root.App().GetMatcher()
	if err != nil {
		return err
	}
	collector, err := root.Collector(ctx, collectorID)
	if err != nil {
		return err
	}
	proposals, err := matcher.Preview(ctx, limit)
	if err != nil {
		return err
	}

	items, missing := selectItems(proposals, messageIDs)
	out := cmd.OutOrStdout()
	for _, id := range missing {
		fmt.Fprintf(out, "%s: not committable (unknown, unmatched or already posted)\n", id)
	}

	res, err := matcher.Commit(ctx, items, collector)
	if err != nil {
		return err
	}
	for _, ft := range res.Created {
		fmt.Fprintf(out, "%s: transaction %d\n", *ft.ExternalID, ft.ID)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(out, "%s: FAILED: %v\n", e.MessageID, e.Err)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d of %d notifications failed", len(res.Errors), len(items))
	}
	return nil
}

// selectItems returns the commit items of the wanted proposals, in the order
// asked for, and the wanted ids that have no committable proposal.
func selectItems(proposals []emailmatch.Proposal, wanted []string) ([]emailmatch.CommitItem, []string) {
	byID := make(map[string]emailmatch.Proposal, len(proposals))
	for _, p := range proposals {
		byID[p.MessageID] = p
	}

	var (
		items   []emailmatch.CommitItem
		missing []string
	)
	for _, id := range wanted {
		item, ok := byID[id].Item()
		if !ok {
			missing = append(missing, id)
			continue
		}
		items = append(items, item)
	}
	return items, missing
}
