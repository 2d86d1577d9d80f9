package repository

import (
	"context"

	"listino/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository interface {
	Create(ctx context.Context, b *model.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	ListByStore(ctx context.Context, store string) ([]model.Batch, error)
}

type batchRepository struct{ db *gorm.DB }

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, b *model.Batch) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var b model.Batch
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *batchRepository) ListByStore(ctx context.Context, store string) ([]model.Batch, error) {
	q := r.db.WithContext(ctx)
	if store != "" {
		q = q.Where("store_code = ?", store)
	}
	var batches []model.Batch
	err := q.Order("created_at DESC").Find(&batches).Error
	return batches, err
}
