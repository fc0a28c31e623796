package reconcile

import (
	"context"

	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/memomatch"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
)

// Page size bounds of ListPending.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PendingItem is a bank record with the member its payer name suggests.
type PendingItem struct {
	Record              models.BankTransactionRecord
	SuggestedMemberID   *uint
	SuggestedMemberName string
}

// PendingPage is one page of ListPending.
type PendingPage struct {
	Items  []PendingItem
	Total  int64
	Offset int
	Limit  int
}

// ListPending pages through bank records, newest first. The status filter
// defaults to PENDING. Each item carries a member suggestion from the memo
// table when its payer name has been learned.
func (s *Service) ListPending(ctx context.Context, f store.BankTxFilter, p store.Page) (*PendingPage, error) {
	if f.Status == "" {
		f.Status = models.StatusPending
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}

	rows, total, err := s.store.ListBankTransactions(ctx, f, p)
	if err != nil {
		return nil, err
	}

	var suggestions map[string]models.MemoMatch
	if s.memos != nil {
		names := make([]string, 0, len(rows))
		for _, r := range rows {
			if r.PayerNameGuess != "" {
				names = append(names, r.PayerNameGuess)
			}
		}
		suggestions, err = s.memos.LookupMany(ctx, names)
		if err != nil {
			return nil, err
		}
	}

	page := &PendingPage{Total: total, Offset: p.Offset, Limit: p.Limit, Items: make([]PendingItem, 0, len(rows))}
	for _, r := range rows {
		item := PendingItem{Record: r}
		if m, ok := suggestions[memomatch.Normalize(r.PayerNameGuess)]; ok && r.PayerNameGuess != "" {
			id := m.MemberID
			item.SuggestedMemberID = &id
			item.SuggestedMemberName = (models.Member{FirstName: m.FirstName, LastName: m.LastName}).FullName()
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// Ignore marks a pending bank record as not requiring reconciliation.
func (s *Service) Ignore(ctx context.Context, bankTxID uint) error {
	if err := s.store.MarkBankTxIgnored(ctx, bankTxID); err != nil {
		return err
	}
	s.logger.WithField(logging.FieldBankTxID, bankTxID).Info("Bank transaction ignored")
	return nil
}
