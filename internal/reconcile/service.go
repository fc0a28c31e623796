// Package reconcile is the single write path that turns pending bank rows and
// externally sourced payments into posted financial transactions with their
// ledger entries. Every posting is one database transaction; side effects that
// must not share its fate run as post-commit hooks.
package reconcile

import (
	"context"
	"time"

	"fjacquet/church-ledger/internal/dateutils"
	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/memomatch"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/textutils"

	"github.com/shopspring/decimal"
)

// GLResolver maps a payment type to its general-ledger code.
type GLResolver interface {
	GLCode(pt models.PaymentType) string
}

// PostingCommitted is published after a posting transaction commits.
type PostingCommitted struct {
	TransactionID uint
	ExternalID    string
	MemberID      *uint
	PaymentType   models.PaymentType
	Amount        string
	Date          time.Time
	Source        models.SourceSystem
}

// Hook reacts to a committed posting. Errors are logged and never undo the posting.
type Hook func(ctx context.Context, ev PostingCommitted) error

// Service reconciles bank rows and posts external payments.
type Service struct {
	store  *store.Store
	memos  *memomatch.Service
	gl     GLResolver
	clock  dateutils.Clock
	logger logging.Logger
	hooks  []Hook
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for MatchedAt timestamps.
func WithClock(c dateutils.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithHook registers a post-commit hook.
func WithHook(h Hook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h) }
}

// NewService creates a reconciliation service.
func NewService(s *store.Store, memos *memomatch.Service, gl GLResolver, logger logging.Logger, opts ...Option) *Service {
	svc := &Service{
		store:  s,
		memos:  memos,
		gl:     gl,
		clock:  dateutils.SystemClock{},
		logger: logging.OrDefault(logger),
	}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// OnCommit registers a post-commit hook.
func (s *Service) OnCommit(h Hook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) publish(ctx context.Context, ev PostingCommitted) {
	for _, h := range s.hooks {
		if err := h(ctx, ev); err != nil {
			s.logger.WithError(err).WithFields(
				logging.Field{Key: logging.FieldTransactionID, Value: ev.TransactionID},
				logging.Field{Key: logging.FieldExternalID, Value: ev.ExternalID},
			).Error("Post-commit hook failed")
		}
	}
}

func requireCollector(collector *models.Member) error {
	if collector == nil || collector.ID == 0 {
		return &ledgererror.ValidationError{Field: "collector", Reason: "required", Err: ledgererror.ErrCollectorRequired}
	}
	return nil
}

func requirePaymentType(pt models.PaymentType) error {
	if !pt.Valid() {
		return &ledgererror.ValidationError{Field: "paymentType", Reason: "unknown payment type " + string(pt)}
	}
	return nil
}

// post persists the transaction and keeps its ledger entries in step with it.
// A new transaction gets one income entry. An updated transaction whose
// posted amount or GL code no longer matches gets a reversing expense entry
// followed by a fresh income entry; entries are never rewritten.
func (s *Service) post(ctx context.Context, tx *store.Store, ft *models.FinancialTransaction, source models.SourceSystem) error {
	isNew := ft.ID == 0
	if err := tx.SaveTransaction(ctx, ft); err != nil {
		return err
	}
	glCode := s.gl.GLCode(ft.PaymentType)

	if !isNew {
		entries, err := tx.LedgerEntriesForTransaction(ctx, ft.ID)
		if err != nil {
			return err
		}
		net, postedCode := postedNet(entries)
		if len(entries) > 0 && net.Equal(ft.Amount) && postedCode == glCode {
			s.logger.WithField(logging.FieldTransactionID, ft.ID).
				Debug("Ledger already mirrors transaction, not posting another entry")
			return nil
		}
		if !net.IsZero() {
			reversal := s.entryFor(ft, models.EntryExpense, net, postedCode, source)
			reversal.Memo = textutils.Truncate("Reversal: "+ft.Note, models.NoteMaxLength)
			if err := tx.CreateLedgerEntry(ctx, reversal); err != nil {
				return err
			}
			s.logger.WithFields(
				logging.Field{Key: logging.FieldTransactionID, Value: ft.ID},
				logging.Field{Key: logging.FieldAmount, Value: net.StringFixed(models.MoneyScale)},
				logging.Field{Key: logging.FieldGLCode, Value: postedCode},
			).Info("Reversed outdated ledger entry")
		}
	}

	return tx.CreateLedgerEntry(ctx, s.entryFor(ft, models.EntryIncome, ft.Amount, glCode, source))
}

func (s *Service) entryFor(ft *models.FinancialTransaction, typ models.EntryType, amount decimal.Decimal, glCode string, source models.SourceSystem) *models.LedgerEntry {
	id := ft.ID
	return &models.LedgerEntry{
		TransactionID: &id,
		EntryDate:     ft.Date,
		Amount:        amount,
		Type:          typ,
		GLCode:        glCode,
		Memo:          ft.Note,
		SourceSystem:  source,
		MemberID:      ft.MemberID,
		CollectorID:   ft.CollectorID,
	}
}

// postedNet returns income minus reversals over a transaction's entries and
// the GL code of its latest income entry.
func postedNet(entries []models.LedgerEntry) (decimal.Decimal, string) {
	net := decimal.Zero
	var code string
	for _, e := range entries {
		switch e.Type {
		case models.EntryIncome:
			net = net.Add(e.Amount)
			code = e.GLCode
		case models.EntryExpense:
			net = net.Sub(e.Amount)
		}
	}
	return net, code
}

func committedEvent(ft *models.FinancialTransaction, source models.SourceSystem) PostingCommitted {
	ev := PostingCommitted{
		TransactionID: ft.ID,
		MemberID:      ft.MemberID,
		PaymentType:   ft.PaymentType,
		Amount:        ft.Amount.StringFixed(models.MoneyScale),
		Date:          ft.Date,
		Source:        source,
	}
	if ft.ExternalID != nil {
		ev.ExternalID = *ft.ExternalID
	}
	return ev
}
