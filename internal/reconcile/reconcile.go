package reconcile

import (
	"context"
	"fmt"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
)

// Request reconciles one bank row.
type Request struct {
	BankTxID    uint
	MemberID    *uint
	PaymentType models.PaymentType
	// ManualDonorName and ManualDonorTypeLabel describe a donor who is not a member.
	ManualDonorName      string
	ManualDonorTypeLabel string
	// ExistingTransactionID updates an already entered transaction instead of
	// creating one.
	ExistingTransactionID *uint
}

// Reconcile posts bank row req.BankTxID as a financial transaction with its
// ledger entry and marks the row MATCHED. All writes happen in one database
// transaction holding a row lock on the bank record.
func (s *Service) Reconcile(ctx context.Context, req Request, collector *models.Member) (*models.FinancialTransaction, error) {
	if err := requireCollector(collector); err != nil {
		return nil, err
	}
	if err := requirePaymentType(req.PaymentType); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(
		logging.Field{Key: logging.FieldBankTxID, Value: req.BankTxID},
		logging.Field{Key: logging.FieldCollectorID, Value: collector.ID},
	)

	var posted *models.FinancialTransaction
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		ft, err := s.reconcileInTx(ctx, tx, req, collector)
		if err != nil {
			return err
		}
		posted = ft
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Reconciliation rejected")
		return nil, err
	}

	log.WithFields(
		logging.Field{Key: logging.FieldTransactionID, Value: posted.ID},
		logging.Field{Key: logging.FieldPaymentType, Value: posted.PaymentType},
	).Info("Bank transaction reconciled")

	s.publish(ctx, committedEvent(posted, models.SourceBankImport))
	return posted, nil
}

func (s *Service) reconcileInTx(ctx context.Context, tx *store.Store, req Request, collector *models.Member) (*models.FinancialTransaction, error) {
	rec, err := tx.LockBankTx(ctx, req.BankTxID)
	if err != nil {
		return nil, err
	}
	switch rec.Status {
	case models.StatusMatched:
		return nil, ledgererror.Conflict("bank transaction", rec.ID, ledgererror.ErrAlreadyReconciled)
	case models.StatusIgnored:
		return nil, ledgererror.Conflict("bank transaction", rec.ID, ledgererror.ErrIgnored)
	}
	if !rec.Amount.IsPositive() {
		return nil, ledgererror.Conflict("bank transaction", rec.ID, ledgererror.ErrAmountBelowMinimum)
	}

	externalID := models.BankExternalID(rec.ID)
	prior, err := tx.FindTransactionByExternalID(ctx, externalID)
	switch {
	case err == nil:
		if req.ExistingTransactionID == nil || *req.ExistingTransactionID != prior.ID {
			return nil, ledgererror.Conflict("transaction", externalID, ledgererror.ErrDuplicatePosting)
		}
	case !ledgererror.IsNotFound(err):
		return nil, err
	}

	var member *models.Member
	if req.MemberID != nil {
		member, err = tx.FindMemberByID(ctx, *req.MemberID)
		if err != nil {
			return nil, err
		}
	}

	ft := &models.FinancialTransaction{}
	if req.ExistingTransactionID != nil {
		ft, err = tx.GetTransaction(ctx, *req.ExistingTransactionID)
		if err != nil {
			return nil, err
		}
		// a transaction keyed to another bank row or message keeps its key
		if ft.ExternalID != nil && *ft.ExternalID != externalID {
			return nil, ledgererror.Conflict("transaction", *ft.ExternalID, ledgererror.ErrDuplicatePosting)
		}
	}

	ft.Amount = rec.Amount
	ft.Date = rec.Date
	ft.PaymentType = req.PaymentType
	ft.PaymentMethod = models.MethodBankTransfer
	ft.CollectorID = collector.ID
	ft.ExternalID = &externalID
	ft.Note = buildNote(donorLabel(member, req, rec), req.PaymentType, rec.Description)
	ft.Status = models.TransactionPosted
	ft.MemberID = nil
	if member != nil {
		id := member.ID
		ft.MemberID = &id
	}

	if err := s.post(ctx, tx, ft, models.SourceBankImport); err != nil {
		return nil, err
	}
	if err := tx.MarkBankTxMatched(ctx, rec.ID, ft.MemberID, s.clock.Now()); err != nil {
		return nil, err
	}

	if member != nil && rec.PayerNameGuess != "" && s.memos != nil {
		if _, err := s.memos.Upsert(ctx, tx, rec.PayerNameGuess, member); err != nil {
			return nil, fmt.Errorf("learn payer name: %w", err)
		}
	}
	return ft, nil
}

// ItemResult is the outcome of one batch item.
type ItemResult struct {
	Index       int
	BankTxID    uint
	Transaction *models.FinancialTransaction
	Err         error
}

// BatchOptions tune BatchReconcile.
type BatchOptions struct {
	// StopOnError stops at the first failing item. Items before it stay committed.
	StopOnError bool
}

// BatchError reports a batch in which at least one item failed.
type BatchError struct {
	Index    int
	BankTxID uint
	Failed   int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch reconcile: %d item(s) failed, first at index %d (bank transaction %d): %v",
		e.Failed, e.Index, e.BankTxID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// BatchReconcile reconciles items in order, each in its own transaction. Every
// attempted item gets a result. When any item fails the returned error is a
// *BatchError naming the first failure.
func (s *Service) BatchReconcile(ctx context.Context, items []Request, collector *models.Member, opts BatchOptions) ([]ItemResult, error) {
	if err := requireCollector(collector); err != nil {
		return nil, err
	}

	results := make([]ItemResult, 0, len(items))
	var batchErr *BatchError

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		ft, err := s.Reconcile(ctx, item, collector)
		results = append(results, ItemResult{Index: i, BankTxID: item.BankTxID, Transaction: ft, Err: err})
		if err == nil {
			continue
		}

		if batchErr == nil {
			batchErr = &BatchError{Index: i, BankTxID: item.BankTxID, Err: err}
		}
		batchErr.Failed++
		if opts.StopOnError {
			break
		}
	}

	s.logger.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(results)},
		logging.Field{Key: "failed", Value: failedCount(batchErr)},
	).Info("Batch reconciliation finished")

	if batchErr != nil {
		return results, batchErr
	}
	return results, nil
}

func failedCount(e *BatchError) int {
	if e == nil {
		return 0
	}
	return e.Failed
}
