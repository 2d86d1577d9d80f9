package repository

import (
	"context"

	"listino/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditRepository interface {
	// Append writes one entry. The audit trail is append-only; there are
	// deliberately no update or delete methods.
	Append(ctx context.Context, tx *gorm.DB, e *model.AuditEntry) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.AuditEntry, error)
	LastByBatchAndAction(ctx context.Context, batchID uuid.UUID, action string) (*model.AuditEntry, error)
}

type auditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *auditRepository) Append(ctx context.Context, tx *gorm.DB, e *model.AuditEntry) error {
	return r.conn(tx).WithContext(ctx).Create(e).Error
}

func (r *auditRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *auditRepository) LastByBatchAndAction(ctx context.Context, batchID uuid.UUID, action string) (*model.AuditEntry, error) {
	var e model.AuditEntry
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND action = ?", batchID, action).
		Order("created_at DESC").
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}
