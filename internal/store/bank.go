package store

import (
	"context"
	"strings"
	"time"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

const entityBankTx = "bank transaction"

// BankTxFilter narrows ListBankTransactions. Zero values do not filter.
type BankTxFilter struct {
	Status models.BankTransactionStatus
	From   *time.Time
	To     *time.Time
	Type   string
	Search string
}

// Page selects a window of results.
type Page struct {
	Offset int
	Limit  int
}

// FindBankTxByHash returns the record with the given dedup hash.
func (s *Store) FindBankTxByHash(ctx context.Context, hash string) (*models.BankTransactionRecord, error) {
	var rec models.BankTransactionRecord
	err := s.conn(ctx).Where("dedup_hash = ?", hash).First(&rec).Error
	if err != nil {
		return nil, translate("find bank transaction by hash", entityBankTx, hash, err)
	}
	return &rec, nil
}

// GetBankTx loads a record by id without locking.
func (s *Store) GetBankTx(ctx context.Context, id uint) (*models.BankTransactionRecord, error) {
	var rec models.BankTransactionRecord
	if err := s.conn(ctx).First(&rec, id).Error; err != nil {
		return nil, translate("get bank transaction", entityBankTx, id, err)
	}
	return &rec, nil
}

// LockBankTx loads a record with SELECT ... FOR UPDATE. It must be called
// inside WithTx; SQLite ignores the locking clause and serialises writers.
func (s *Store) LockBankTx(ctx context.Context, id uint) (*models.BankTransactionRecord, error) {
	var rec models.BankTransactionRecord
	q := s.conn(ctx)
	if s.Dialect() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&rec, id).Error; err != nil {
		return nil, translate("lock bank transaction", entityBankTx, id, err)
	}
	return &rec, nil
}

// InsertBankTx inserts rec unless a record with the same dedup hash already
// exists. It reports whether a row was written.
func (s *Store) InsertBankTx(ctx context.Context, rec *models.BankTransactionRecord) (bool, error) {
	res := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedup_hash"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, ledgererror.Dependency("insert bank transaction", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// BackfillBalance sets the balance of record id only if it is still null.
func (s *Store) BackfillBalance(ctx context.Context, id uint, balance decimal.Decimal) (bool, error) {
	res := s.conn(ctx).Model(&models.BankTransactionRecord{}).
		Where("id = ? AND balance IS NULL", id).
		Update("balance", decimal.NewNullDecimal(balance))
	if res.Error != nil {
		return false, ledgererror.Dependency("backfill balance", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkBankTxMatched moves a PENDING record to MATCHED. A record in any other
// state is reported as a conflict.
func (s *Store) MarkBankTxMatched(ctx context.Context, id uint, memberID *uint, at time.Time) error {
	return s.transition(ctx, id, models.StatusPending, map[string]interface{}{
		"status":     models.StatusMatched,
		"member_id":  memberID,
		"matched_at": at,
	}, ledgererror.ErrAlreadyReconciled)
}

// MarkBankTxIgnored moves a PENDING record to IGNORED.
func (s *Store) MarkBankTxIgnored(ctx context.Context, id uint) error {
	return s.transition(ctx, id, models.StatusPending, map[string]interface{}{
		"status": models.StatusIgnored,
	}, ledgererror.ErrNotPending)
}

func (s *Store) transition(ctx context.Context, id uint, from models.BankTransactionStatus, updates map[string]interface{}, reason error) error {
	res := s.conn(ctx).Model(&models.BankTransactionRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return ledgererror.Dependency("update bank transaction status", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetBankTx(ctx, id); err != nil {
			return err
		}
		return ledgererror.Conflict(entityBankTx, id, reason)
	}
	return nil
}

// ListBankTransactions returns one page of records, newest first, and the total
// number of records matching the filter.
func (s *Store) ListBankTransactions(ctx context.Context, f BankTxFilter, p Page) ([]models.BankTransactionRecord, int64, error) {
	q := s.conn(ctx).Model(&models.BankTransactionRecord{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}
	if f.Type != "" {
		q = q.Where("type = ?", strings.ToUpper(f.Type))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(description) LIKE ? OR LOWER(payer_name_guess) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, ledgererror.Dependency("count bank transactions", err)
	}

	var out []models.BankTransactionRecord
	q = q.Order("date DESC, id DESC").Offset(p.Offset)
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, ledgererror.Dependency("list bank transactions", err)
	}
	return out, total, nil
}

// LatestAnchor returns the newest record carrying a balance: latest date, and
// the lowest id among records sharing that date.
func (s *Store) LatestAnchor(ctx context.Context) (*models.BankTransactionRecord, error) {
	var rec models.BankTransactionRecord
	err := s.conn(ctx).
		Where("balance IS NOT NULL").
		Order("date DESC, id ASC").
		First(&rec).Error
	if err != nil {
		return nil, translate("find balance anchor", entityBankTx, "anchor", err)
	}
	return &rec, nil
}

// AmountsAfter returns the amounts of every record strictly newer than the
// position (date, id).
func (s *Store) AmountsAfter(ctx context.Context, date time.Time, id uint) ([]decimal.Decimal, error) {
	var rows []models.BankTransactionRecord
	err := s.conn(ctx).
		Select("id", "amount").
		Where("date > ? OR (date = ? AND id > ?)", date, date, id).
		Order("date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, ledgererror.Dependency("sum amounts after anchor", err)
	}
	out := make([]decimal.Decimal, len(rows))
	for i, r := range rows {
		out[i] = r.Amount
	}
	return out, nil
}
