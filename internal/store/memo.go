package store

import (
	"context"
	"time"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"

	"gorm.io/gorm/clause"
)

const entityMemoMatch = "memo match"

// FindMemoMatch loads the mapping for an already normalized memo.
func (s *Store) FindMemoMatch(ctx context.Context, memo string) (*models.MemoMatch, error) {
	var m models.MemoMatch
	if err := s.conn(ctx).Where("memo = ?", memo).First(&m).Error; err != nil {
		return nil, translate("find memo match", entityMemoMatch, memo, err)
	}
	return &m, nil
}

// FindMemoMatches loads the mappings for several normalized memos at once.
func (s *Store) FindMemoMatches(ctx context.Context, memos []string) (map[string]models.MemoMatch, error) {
	out := make(map[string]models.MemoMatch, len(memos))
	if len(memos) == 0 {
		return out, nil
	}
	var rows []models.MemoMatch
	if err := s.conn(ctx).Where("memo IN ?", memos).Find(&rows).Error; err != nil {
		return nil, ledgererror.Dependency("find memo matches", err)
	}
	for _, r := range rows {
		out[r.Memo] = r
	}
	return out, nil
}

// UpsertMemoMatch inserts m or repoints the existing mapping for m.Memo.
func (s *Store) UpsertMemoMatch(ctx context.Context, m *models.MemoMatch) error {
	m.UpdatedAt = time.Now()
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "memo"}},
		DoUpdates: clause.AssignmentColumns([]string{"member_id", "first_name", "last_name", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return ledgererror.Dependency("upsert memo match", err)
	}
	return nil
}
