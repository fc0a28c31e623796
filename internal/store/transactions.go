package store

import (
	"context"
	"errors"
	"time"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"

	"gorm.io/gorm"
)

const (
	entityTransaction = "transaction"
	entityLedgerEntry = "ledger entry"
)

// GetTransaction loads a financial transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id uint) (*models.FinancialTransaction, error) {
	var t models.FinancialTransaction
	if err := s.conn(ctx).First(&t, id).Error; err != nil {
		return nil, translate("get transaction", entityTransaction, id, err)
	}
	return &t, nil
}

// FindTransactionByExternalID loads the transaction posted under externalID.
func (s *Store) FindTransactionByExternalID(ctx context.Context, externalID string) (*models.FinancialTransaction, error) {
	var t models.FinancialTransaction
	if err := s.conn(ctx).Where("external_id = ?", externalID).First(&t).Error; err != nil {
		return nil, translate("find transaction by external id", entityTransaction, externalID, err)
	}
	return &t, nil
}

// ExistingExternalIDs reports which of ids are already used by a transaction.
func (s *Store) ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []string
	err := s.conn(ctx).Model(&models.FinancialTransaction{}).
		Where("external_id IN ?", ids).
		Pluck("external_id", &found).Error
	if err != nil {
		return nil, ledgererror.Dependency("lookup external ids", err)
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}

// SaveTransaction inserts t when it has no id and updates it otherwise. A
// unique violation on the external id is reported as a duplicate posting.
func (s *Store) SaveTransaction(ctx context.Context, t *models.FinancialTransaction) error {
	var err error
	if t.ID == 0 {
		err = s.conn(ctx).Create(t).Error
	} else {
		err = s.conn(ctx).Save(t).Error
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		ext := ""
		if t.ExternalID != nil {
			ext = *t.ExternalID
		}
		return ledgererror.Conflict(entityTransaction, ext, ledgererror.ErrDuplicatePosting)
	}
	if err != nil {
		return ledgererror.Dependency("save transaction", err)
	}
	return nil
}

// ListMemberTransactions returns the member's transactions dated in [from, to).
func (s *Store) ListMemberTransactions(ctx context.Context, memberID uint, from, to time.Time) ([]models.FinancialTransaction, error) {
	var out []models.FinancialTransaction
	err := s.conn(ctx).
		Where("member_id = ? AND date >= ? AND date < ?", memberID, from, to).
		Order("date ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, ledgererror.Dependency("list member transactions", err)
	}
	return out, nil
}

// CreateLedgerEntry appends a ledger entry.
func (s *Store) CreateLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	if err := s.conn(ctx).Create(e).Error; err != nil {
		return ledgererror.Dependency("create ledger entry", err)
	}
	return nil
}

// LedgerEntriesForTransaction lists the entries posted for a transaction.
func (s *Store) LedgerEntriesForTransaction(ctx context.Context, transactionID uint) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	err := s.conn(ctx).Where("transaction_id = ?", transactionID).Order("id").Find(&out).Error
	if err != nil {
		return nil, translate("list ledger entries", entityLedgerEntry, transactionID, err)
	}
	return out, nil
}
