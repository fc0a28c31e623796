package emailmatch

import (
	"context"
	"fmt"
	"time"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/memomatch"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/reconcile"
	"fjacquet/church-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// MatchSource says how a proposal found its member.
type MatchSource string

// Match sources
const (
	MatchNone    MatchSource = ""
	MatchMemo    MatchSource = "memo"
	MatchContact MatchSource = "contact"
)

// Proposal is a notification with its suggested member.
type Proposal struct {
	Notification
	MatchedMemberID   *uint
	MatchedMemberName string
	MatchSource       MatchSource
	AlreadyPosted     bool
	// WouldCreate is set when committing the proposal as is would post a
	// transaction: it has an amount and a member and was not posted before.
	WouldCreate bool
}

// CommitItem is an operator-confirmed proposal.
type CommitItem struct {
	MessageID   string
	MemberID    uint
	Amount      decimal.Decimal
	Date        time.Time
	Memo        string
	PaymentType models.PaymentType
}

// Item turns the proposal into a commit item for its matched member.
func (p Proposal) Item() (CommitItem, bool) {
	if !p.WouldCreate || p.MatchedMemberID == nil {
		return CommitItem{}, false
	}
	return CommitItem{
		MessageID: p.MessageID,
		MemberID:  *p.MatchedMemberID,
		Amount:    p.Amount.Decimal,
		Date:      p.Date,
		Memo:      p.Memo,
	}, true
}

// ItemError reports a commit item that was not posted.
type ItemError struct {
	Index     int
	MessageID string
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("message %s: %v", e.MessageID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// CommitResult lists what a commit posted and what it refused.
type CommitResult struct {
	Created []*models.FinancialTransaction
	Errors  []*ItemError
}

// Ledger is the read side the matcher needs.
type Ledger interface {
	store.MemberDirectory
	ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Poster posts confirmed payments.
type Poster interface {
	PostExternal(ctx context.Context, p reconcile.ExternalPosting, collector *models.Member) (*models.FinancialTransaction, error)
}

// Matcher proposes and commits email payments.
type Matcher struct {
	source      MessageSource
	parser      *Parser
	ledger      Ledger
	memos       *memomatch.Service
	poster      Poster
	paymentType models.PaymentType
	logger      logging.Logger
}

// NewMatcher creates a matcher. Committed items without a payment type are
// posted as paymentType.
func NewMatcher(source MessageSource, parser *Parser, ledger Ledger, memos *memomatch.Service, poster Poster, paymentType models.PaymentType, logger logging.Logger) *Matcher {
	if paymentType == "" {
		paymentType = models.PaymentMembershipDue
	}
	return &Matcher{
		source:      source,
		parser:      parser,
		ledger:      ledger,
		memos:       memos,
		poster:      poster,
		paymentType: paymentType,
		logger:      logging.OrDefault(logger),
	}
}

// Preview reads up to limit messages and proposes a member for each payment
// notification. It never writes.
func (m *Matcher) Preview(ctx context.Context, limit int) ([]Proposal, error) {
	msgs, err := m.source.Messages(ctx, limit)
	if err != nil {
		return nil, err
	}

	var proposals []Proposal
	for _, msg := range msgs {
		n, ok := m.parser.ParseNotification(msg)
		if !ok {
			m.logger.WithField(logging.FieldMessageID, msg.ID).Debug("Ignoring non-payment sender")
			continue
		}
		p := Proposal{Notification: *n}
		if err := m.match(ctx, &p); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}

	ids := make([]string, 0, len(proposals))
	for _, p := range proposals {
		ids = append(ids, p.ExternalID)
	}
	posted, err := m.ledger.ExistingExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range proposals {
		p := &proposals[i]
		p.AlreadyPosted = posted[p.ExternalID]
		p.WouldCreate = p.Amount.Valid && p.Amount.Decimal.IsPositive() && p.MatchedMemberID != nil && !p.AlreadyPosted
	}

	m.logger.WithFields(
		logging.Field{Key: logging.FieldCount, Value: len(proposals)},
		logging.Field{Key: "messages", Value: len(msgs)},
	).Info("Previewed payment notifications")
	return proposals, nil
}

func (m *Matcher) match(ctx context.Context, p *Proposal) error {
	mm, found, err := m.memos.Lookup(ctx, p.Memo)
	if err != nil {
		return err
	}
	if found {
		id := mm.MemberID
		p.MatchedMemberID = &id
		p.MatchedMemberName = mm.FirstName + " " + mm.LastName
		p.MatchSource = MatchMemo
		return nil
	}

	if p.SenderEmail == "" && p.Phone == "" {
		return nil
	}
	member, err := m.ledger.FindMemberByEmailOrPhone(ctx, p.SenderEmail, p.Phone)
	switch {
	case ledgererror.IsNotFound(err):
		return nil
	case err != nil:
		return err
	}
	p.MatchedMemberID = &member.ID
	p.MatchedMemberName = member.FullName()
	p.MatchSource = MatchContact
	return nil
}

// Commit posts every item in its own transaction and teaches the memo table
// the item's memo. Failed items are reported and do not stop the others.
func (m *Matcher) Commit(ctx context.Context, items []CommitItem, collector *models.Member) (*CommitResult, error) {
	if collector == nil {
		return nil, &ledgererror.ValidationError{Field: "collector", Reason: "required", Err: ledgererror.ErrCollectorRequired}
	}

	res := &CommitResult{}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ft, err := m.commitOne(ctx, item, collector)
		if err != nil {
			m.logger.WithError(err).WithField(logging.FieldMessageID, item.MessageID).Warn("Notification not committed")
			res.Errors = append(res.Errors, &ItemError{Index: i, MessageID: item.MessageID, Err: err})
			continue
		}
		res.Created = append(res.Created, ft)
	}

	m.logger.WithFields(
		logging.Field{Key: "created", Value: len(res.Created)},
		logging.Field{Key: "failed", Value: len(res.Errors)},
	).Info("Committed payment notifications")
	return res, nil
}

func (m *Matcher) commitOne(ctx context.Context, item CommitItem, collector *models.Member) (*models.FinancialTransaction, error) {
	pt := item.PaymentType
	if pt == "" {
		pt = m.paymentType
	}
	memberID := item.MemberID

	return m.poster.PostExternal(ctx, reconcile.ExternalPosting{
		ExternalID:  models.MessageExternalID(item.MessageID),
		MemberID:    &memberID,
		Amount:      models.RoundMoney(item.Amount),
		Date:        item.Date,
		PaymentType: pt,
		Note:        "Email payment: " + item.Memo,
		Source:      models.SourceEmailImport,
		BeforeCommit: func(ctx context.Context, tx *store.Store, _ *models.FinancialTransaction) error {
			member, err := tx.FindMemberByID(ctx, memberID)
			if err != nil {
				return err
			}
			_, err = m.memos.Upsert(ctx, tx, item.Memo, member)
			return err
		},
	}, collector)
}
