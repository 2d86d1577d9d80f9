package repository

import (
	"context"

	"listino/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VatRateRepository interface {
	GetAll(ctx context.Context) ([]model.VatRate, error)
	GetByStore(ctx context.Context, store string) (*model.VatRate, error)
	UpsertAll(ctx context.Context, rates []model.VatRate) error
}

type vatRateRepository struct{ db *gorm.DB }

func NewVatRateRepository(db *gorm.DB) VatRateRepository {
	return &vatRateRepository{db: db}
}

func (r *vatRateRepository) GetAll(ctx context.Context) ([]model.VatRate, error) {
	var rates []model.VatRate
	err := r.db.WithContext(ctx).Order("store_code ASC").Find(&rates).Error
	return rates, err
}

func (r *vatRateRepository) GetByStore(ctx context.Context, store string) (*model.VatRate, error) {
	var rate model.VatRate
	if err := r.db.WithContext(ctx).First(&rate, "store_code = ?", store).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *vatRateRepository) UpsertAll(ctx context.Context, rates []model.VatRate) error {
	if len(rates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"store_name", "rate", "updated_at"}),
		}).
		Create(&rates).Error
}
