package repository

import (
	"context"

	"listino/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfigRepository interface {
	Get(ctx context.Context) (*model.MagentoConfig, error)
	Save(ctx context.Context, cfg *model.MagentoConfig) error
}

type configRepository struct{ db *gorm.DB }

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) Get(ctx context.Context) (*model.MagentoConfig, error) {
	var cfg model.MagentoConfig
	if err := r.db.WithContext(ctx).First(&cfg, "id = 1").Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *configRepository) Save(ctx context.Context, cfg *model.MagentoConfig) error {
	cfg.ID = 1
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"magento_url", "access_token", "updated_at"}),
		}).
		Create(cfg).Error
}
