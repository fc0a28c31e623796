package dues

import (
	"context"
	"fmt"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/reconcile"
	"fjacquet/church-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// SnapshotKey is the legacy key of a member's snapshot: the phone number, or
// "member:<id>" for members without one.
func SnapshotKey(m *models.Member) string {
	if m.PhoneNumber != "" {
		return m.PhoneNumber
	}
	return fmt.Sprintf("member:%d", m.ID)
}

// RecalculateSnapshot rebuilds the yearly payment snapshot of memberID from
// its dues transactions. A missing snapshot is seeded from the current pledge.
// Running it again without new postings stores the same values.
func (e *Engine) RecalculateSnapshot(ctx context.Context, memberID uint, year int) (*models.YearlyPaymentSnapshot, error) {
	var saved *models.YearlyPaymentSnapshot

	err := e.store.WithTx(ctx, func(tx *store.Store) error {
		member, err := tx.FindMemberByID(ctx, memberID)
		if err != nil {
			return err
		}
		from, to := dateutils.YearBounds(year)
		txs, err := tx.ListMemberTransactions(ctx, memberID, from, to)
		if err != nil {
			return err
		}

		var months [12]decimal.Decimal
		total := decimal.Zero
		for _, t := range txs {
			if t.PaymentType != e.duesType {
				continue
			}
			i := int(t.Date.Month()) - 1
			months[i] = months[i].Add(t.Amount)
			total = total.Add(t.Amount)
		}

		key := SnapshotKey(member)
		snap, err := tx.FindSnapshot(ctx, key, year)
		switch {
		case ledgererror.IsNotFound(err):
			pledge := member.Pledge()
			snap = &models.YearlyPaymentSnapshot{
				Key:            key,
				Year:           year,
				TotalAmountDue: models.RoundMoney(pledge),
				MonthlyPayment: models.MonthlyDue(pledge),
			}
		case err != nil:
			return err
		}

		snap.MemberID = member.ID
		snap.SetMonths(months)
		snap.TotalCollected = total
		snap.BalanceDue = decimal.Max(decimal.Zero, snap.TotalAmountDue.Sub(total))

		if err := tx.SaveSnapshot(ctx, snap); err != nil {
			return err
		}
		saved = snap
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(
		logging.Field{Key: logging.FieldMemberID, Value: memberID},
		logging.Field{Key: logging.FieldYear, Value: year},
	).Debug("Recalculated payment snapshot")
	return saved, nil
}

// RefreshOnPosting is a reconcile.Hook that recomputes the snapshot after a
// dues posting for a member.
func (e *Engine) RefreshOnPosting(ctx context.Context, ev reconcile.PostingCommitted) error {
	if ev.MemberID == nil || ev.PaymentType != e.duesType {
		return nil
	}
	_, err := e.RecalculateSnapshot(ctx, *ev.MemberID, ev.Date.Year())
	return err
}
