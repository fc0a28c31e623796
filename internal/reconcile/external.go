package reconcile

import (
	"context"
	"strings"
	"time"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/textutils"

	"github.com/shopspring/decimal"
)

// ExternalPosting is a payment that did not come from a bank row, keyed by a
// caller-supplied external id.
type ExternalPosting struct {
	ExternalID    string
	MemberID      *uint
	Amount        decimal.Decimal
	Date          time.Time
	PaymentType   models.PaymentType
	PaymentMethod models.PaymentMethod
	Note          string
	Source        models.SourceSystem
	// BeforeCommit runs inside the posting transaction after the writes.
	// Returning an error rolls the posting back.
	BeforeCommit func(ctx context.Context, tx *store.Store, posted *models.FinancialTransaction) error
}

// PostExternal posts p with the same guarantees as Reconcile: one transaction,
// a unique external id and exactly one income ledger entry.
func (s *Service) PostExternal(ctx context.Context, p ExternalPosting, collector *models.Member) (*models.FinancialTransaction, error) {
	if err := requireCollector(collector); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ExternalID) == "" {
		return nil, &ledgererror.ValidationError{Field: "externalId", Reason: "required"}
	}
	if err := requirePaymentType(p.PaymentType); err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, ledgererror.Conflict("posting", p.ExternalID, ledgererror.ErrAmountBelowMinimum)
	}
	if p.Source == "" {
		p.Source = models.SourceManual
	}
	if p.PaymentMethod == "" {
		p.PaymentMethod = models.MethodOnline
	}

	var posted *models.FinancialTransaction
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		_, err := tx.FindTransactionByExternalID(ctx, p.ExternalID)
		switch {
		case err == nil:
			return ledgererror.Conflict("transaction", p.ExternalID, ledgererror.ErrDuplicatePosting)
		case !ledgererror.IsNotFound(err):
			return err
		}

		if p.MemberID != nil {
			if _, err := tx.FindMemberByID(ctx, *p.MemberID); err != nil {
				return err
			}
		}

		ext := p.ExternalID
		ft := &models.FinancialTransaction{
			MemberID:      p.MemberID,
			CollectorID:   collector.ID,
			Amount:        p.Amount,
			Date:          p.Date,
			PaymentType:   p.PaymentType,
			PaymentMethod: p.PaymentMethod,
			ExternalID:    &ext,
			Note:          textutils.Truncate(p.Note, models.NoteMaxLength),
			Status:        models.TransactionPosted,
		}
		if err := s.post(ctx, tx, ft, p.Source); err != nil {
			return err
		}
		if p.BeforeCommit != nil {
			if err := p.BeforeCommit(ctx, tx, ft); err != nil {
				return err
			}
		}
		posted = ft
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField(logging.FieldExternalID, p.ExternalID).Warn("External posting rejected")
		return nil, err
	}

	s.logger.WithFields(
		logging.Field{Key: logging.FieldExternalID, Value: p.ExternalID},
		logging.Field{Key: logging.FieldTransactionID, Value: posted.ID},
	).Info("External payment posted")

	s.publish(ctx, committedEvent(posted, p.Source))
	return posted, nil
}
