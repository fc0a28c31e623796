// Package balance derives the current account balance from the most recent
// explicit statement balance plus every newer movement.
package balance

import (
	"context"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// Accumulator computes running balances.
type Accumulator struct {
	store  *store.Store
	logger logging.Logger
}

// NewAccumulator creates an accumulator over s.
func NewAccumulator(s *store.Store, logger logging.Logger) *Accumulator {
	return &Accumulator{store: s, logger: logging.OrDefault(logger)}
}

// CurrentBalance returns anchor balance + the sum of amounts of records
// strictly newer than the anchor, where the anchor is the latest record with a
// balance (lowest id on a date tie). The result is null when no record carries
// a balance. Both reads share one snapshot.
func (a *Accumulator) CurrentBalance(ctx context.Context) (decimal.NullDecimal, error) {
	var result decimal.NullDecimal

	err := a.store.ReadSnapshot(ctx, func(tx *store.Store) error {
		anchor, err := tx.LatestAnchor(ctx)
		if ledgererror.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		deltas, err := tx.AmountsAfter(ctx, anchor.Date, anchor.ID)
		if err != nil {
			return err
		}

		total := anchor.Balance.Decimal.Add(models.SumAmounts(deltas...))
		result = decimal.NewNullDecimal(total)

		a.logger.WithFields(
			logging.Field{Key: logging.FieldBankTxID, Value: anchor.ID},
			logging.Field{Key: logging.FieldCount, Value: len(deltas)},
		).Debug("Computed balance from anchor")
		return nil
	})
	if err != nil {
		return decimal.NullDecimal{}, ledgererror.Dependency("current balance", err)
	}
	return result, nil
}
