package store

import (
	"context"

	"fjacquet/church-ledger/internal/ledgererror"
	"fjacquet/church-ledger/internal/models"

	"gorm.io/gorm/clause"
)

const entitySnapshot = "payment snapshot"

// FindSnapshot loads the snapshot for (key, year).
func (s *Store) FindSnapshot(ctx context.Context, key string, year int) (*models.YearlyPaymentSnapshot, error) {
	var snap models.YearlyPaymentSnapshot
	err := s.conn(ctx).
		Where(&models.YearlyPaymentSnapshot{Key: key, Year: year}).
		First(&snap).Error
	if err != nil {
		return nil, translate("find snapshot", entitySnapshot, key, err)
	}
	return &snap, nil
}

// SaveSnapshot writes snap. A snapshot loaded from the store is updated in
// place; a new one replaces any row with the same (key, year).
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.YearlyPaymentSnapshot) error {
	if snap.ID != 0 {
		if err := s.conn(ctx).Save(snap).Error; err != nil {
			return ledgererror.Dependency("save snapshot", err)
		}
		return nil
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "year"}},
		UpdateAll: true,
	}).Create(snap).Error
	if err != nil {
		return ledgererror.Dependency("save snapshot", err)
	}
	return nil
}
