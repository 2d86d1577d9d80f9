package repository

import (
	"context"

	"listino/internal/model"

	"gorm.io/gorm"
)

type StagingRepository interface {
	// ReplaceForStore swaps the staged rows of a store atomically: a new
	// import always supersedes the previous one.
	ReplaceForStore(ctx context.Context, store string, rows []*model.StagingRow) error
	ListByStore(ctx context.Context, store string) ([]model.StagingRow, error)
	DeleteByStore(ctx context.Context, tx *gorm.DB, store string) error
}

type stagingRepository struct{ db *gorm.DB }

func NewStagingRepository(db *gorm.DB) StagingRepository {
	return &stagingRepository{db: db}
}

func (r *stagingRepository) ReplaceForStore(ctx context.Context, store string, rows []*model.StagingRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_code = ?", store).Delete(&model.StagingRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (r *stagingRepository) ListByStore(ctx context.Context, store string) ([]model.StagingRow, error) {
	var rows []model.StagingRow
	err := r.db.WithContext(ctx).
		Where("store_code = ?", store).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *stagingRepository) DeleteByStore(ctx context.Context, tx *gorm.DB, store string) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).Where("store_code = ?", store).Delete(&model.StagingRow{}).Error
}
