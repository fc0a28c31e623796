// Package memomatch maintains the learned table mapping normalized payment
// memos to members. Lookups are exact on the normalized form; learning is
// last-writer-wins.
package memomatch

import (
	"context"
	"strings"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/logging"
	"fjacquet/church-ledger/internal/models"
	"fjacquet/church-ledger/internal/store"
	"fjacquet/church-ledger/internal/textutils"
)

// Outcome describes what Upsert did.
type Outcome int

// Upsert outcomes
const (
	Unchanged Outcome = iota
	Created
	Repointed
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Repointed:
		return "repointed"
	default:
		return "unchanged"
	}
}

// Normalize lower-cases the memo, collapses whitespace and trims surrounding
// punctuation.
func Normalize(memo string) string {
	return strings.Trim(textutils.CollapseWhitespace(strings.ToLower(memo)), " .,;:-_!?\"'")
}

// Service reads and learns memo matches.
type Service struct {
	store  *store.Store
	logger logging.Logger
}

// NewService creates a Service over s.
func NewService(s *store.Store, logger logging.Logger) *Service {
	return &Service{store: s, logger: logging.OrDefault(logger)}
}

// Lookup returns the mapping for memo, if any.
func (s *Service) Lookup(ctx context.Context, memo string) (*models.MemoMatch, bool, error) {
	key := Normalize(memo)
	if key == "" {
		return nil, false, nil
	}
	m, err := s.store.FindMemoMatch(ctx, key)
	if ledgererror.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

// LookupMany resolves several memos at once, keyed by normalized memo.
func (s *Service) LookupMany(ctx context.Context, memos []string) (map[string]models.MemoMatch, error) {
	keys := make([]string, 0, len(memos))
	seen := make(map[string]bool, len(memos))
	for _, m := range memos {
		k := Normalize(m)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return s.store.FindMemoMatches(ctx, keys)
}

// Upsert learns memo -> member. A nil tx writes through the service's own
// store; pass the enclosing transaction to make the write part of it.
func (s *Service) Upsert(ctx context.Context, tx *store.Store, memo string, member *models.Member) (Outcome, error) {
	if tx == nil {
		tx = s.store
	}
	key := Normalize(memo)
	if key == "" || member == nil {
		return Unchanged, nil
	}

	outcome := Created
	existing, err := tx.FindMemoMatch(ctx, key)
	switch {
	case err == nil && existing.MemberID == member.ID:
		return Unchanged, nil
	case err == nil:
		outcome = Repointed
	case !ledgererror.IsNotFound(err):
		return Unchanged, err
	}

	err = tx.UpsertMemoMatch(ctx, &models.MemoMatch{
		Memo:      key,
		MemberID:  member.ID,
		FirstName: member.FirstName,
		LastName:  member.LastName,
	})
	if err != nil {
		return Unchanged, err
	}

	log := s.logger.WithFields(
		logging.Field{Key: logging.FieldMemo, Value: key},
		logging.Field{Key: logging.FieldMemberID, Value: member.ID},
	)
	if outcome == Repointed {
		log.WithField("previous_member_id", existing.MemberID).Info("Repointed memo match")
	} else {
		log.Info("Learned memo match")
	}
	return outcome, nil
}
