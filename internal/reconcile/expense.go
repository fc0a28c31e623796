package reconcile

import (
	"context"
	"strings"
	"time"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/textutils"

	"github.com/shopspring/decimal"
)

// Expense is an outgoing payment recorded directly in the ledger.
type Expense struct {
	Amount   decimal.Decimal
	Date     time.Time
	GLCode   string
	Memo     string
	MemberID *uint
}

// RecordExpense appends a standalone expense ledger entry.
func (s *Service) RecordExpense(ctx context.Context, e Expense, collector *models.Member) (*models.LedgerEntry, error) {
	if err := requireCollector(collector); err != nil {
		return nil, err
	}
	if strings.TrimSpace(e.GLCode) == "" {
		return nil, &ledgererror.ValidationError{Field: "glCode", Reason: "required"}
	}
	if !e.Amount.IsPositive() {
		return nil, &ledgererror.ValidationError{Field: "amount", Reason: "must be positive", Err: ledgererror.ErrAmountBelowMinimum}
	}
	if e.Date.IsZero() {
		e.Date = s.clock.Now()
	}

	entry := &models.LedgerEntry{
		EntryDate:    e.Date,
		Amount:       models.RoundMoney(e.Amount),
		Type:         models.EntryExpense,
		GLCode:       strings.TrimSpace(e.GLCode),
		Memo:         textutils.Truncate(e.Memo, models.NoteMaxLength),
		SourceSystem: models.SourceManual,
		MemberID:     e.MemberID,
		CollectorID:  collector.ID,
	}
	if err := s.store.CreateLedgerEntry(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.WithFields(
		logging.Field{Key: logging.FieldGLCode, Value: entry.GLCode},
		logging.Field{Key: logging.FieldAmount, Value: entry.Amount.StringFixed(models.MoneyScale)},
	).Info("Expense recorded")
	return entry, nil
}
