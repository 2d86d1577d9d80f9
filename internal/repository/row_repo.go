package repository

import (
	"context"

	"listino/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RowFilter narrows a search within a batch. Zero values are ignored.
type RowFilter struct {
	SKU       string
	Categoria string
	Linea     string
	Marca     string
	Status    string
}

type RowRepository interface {
	CreateBulk(ctx context.Context, tx *gorm.DB, rows []*model.Row) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Row, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Row, error)
	Save(ctx context.Context, row *model.Row) error

	// ListByStatus returns a page of rows for a store in any of the given
	// statuses, newest first, plus the unpaginated total.
	ListByStatus(ctx context.Context, store string, statuses []string, page, limit int) ([]model.Row, int64, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID, statuses []string) ([]model.Row, error)
	Search(ctx context.Context, batchID uuid.UUID, f RowFilter) ([]model.Row, error)

	// UpdateStatusCAS flips every row in ids from one of fromStatuses to
	// toStatus and returns how many rows matched. The caller decides whether
	// a partial match is a conflict (and rolls the transaction back).
	UpdateStatusCAS(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, fromStatuses []string, toStatus string) (int64, error)

	// SetPublishOutcome records one row's publish attempt result.
	SetPublishOutcome(ctx context.Context, id uuid.UUID, status string, errore *string) error

	// IDsByBatchAndStatus returns the ids of the batch rows in the given status.
	IDsByBatchAndStatus(ctx context.Context, batchID uuid.UUID, status string) ([]uuid.UUID, error)

	// StatusCounts groups the batch rows by status.
	StatusCounts(ctx context.Context, batchID uuid.UUID) (map[string]int64, error)
	// StatusCountsForBatches does the same for many batches in one query.
	StatusCountsForBatches(ctx context.Context, batchIDs []uuid.UUID) (map[uuid.UUID]map[string]int64, error)

	// Facets returns the distinct non-empty categoria/linea/marca values of the
	// store's current rows, for filter dropdowns.
	Facets(ctx context.Context, store string) (categorie, linee, marche []string, err error)

	DB() *gorm.DB
}

type rowRepository struct{ db *gorm.DB }

func NewRowRepository(db *gorm.DB) RowRepository {
	return &rowRepository{db: db}
}

func (r *rowRepository) DB() *gorm.DB { return r.db }

func (r *rowRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *rowRepository) CreateBulk(ctx context.Context, tx *gorm.DB, rows []*model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return r.conn(tx).WithContext(ctx).CreateInBatches(rows, 500).Error
}

func (r *rowRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Row, error) {
	var row model.Row
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *rowRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Row, error) {
	var rows []model.Row
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *rowRepository) Save(ctx context.Context, row *model.Row) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *rowRepository) ListByStatus(ctx context.Context, store string, statuses []string, page, limit int) ([]model.Row, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Row{}).Where("status IN ?", statuses)
	if store != "" {
		q = q.Where("store_code = ?", store)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Row
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *rowRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, statuses []string) ([]model.Row, error) {
	q := r.db.WithContext(ctx).Where("batch_id = ?", batchID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var rows []model.Row
	err := q.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *rowRepository) Search(ctx context.Context, batchID uuid.UUID, f RowFilter) ([]model.Row, error) {
	q := r.db.WithContext(ctx).Where("batch_id = ?", batchID)
	if f.SKU != "" {
		q = q.Where("sku ILIKE ?", "%"+f.SKU+"%")
	}
	if f.Categoria != "" {
		q = q.Where("categoria = ?", f.Categoria)
	}
	if f.Linea != "" {
		q = q.Where("linea = ?", f.Linea)
	}
	if f.Marca != "" {
		q = q.Where("marca = ?", f.Marca)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var rows []model.Row
	err := q.Order("sku ASC").Find(&rows).Error
	return rows, err
}

func (r *rowRepository) UpdateStatusCAS(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, fromStatuses []string, toStatus string) (int64, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&model.Row{}).
		Where("id IN ? AND status IN ?", ids, fromStatuses).
		Update("status", toStatus)
	return res.RowsAffected, res.Error
}

func (r *rowRepository) SetPublishOutcome(ctx context.Context, id uuid.UUID, status string, errore *string) error {
	return r.db.WithContext(ctx).
		Model(&model.Row{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "errore": errore}).Error
}

func (r *rowRepository) IDsByBatchAndStatus(ctx context.Context, batchID uuid.UUID, status string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Row{}).
		Where("batch_id = ? AND status = ?", batchID, status).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *rowRepository) StatusCounts(ctx context.Context, batchID uuid.UUID) (map[string]int64, error) {
	type bucket struct {
		Status string
		N      int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&model.Row{}).
		Select("status, COUNT(*) AS n").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		counts[b.Status] = b.N
	}
	return counts, nil
}

func (r *rowRepository) StatusCountsForBatches(ctx context.Context, batchIDs []uuid.UUID) (map[uuid.UUID]map[string]int64, error) {
	result := make(map[uuid.UUID]map[string]int64, len(batchIDs))
	if len(batchIDs) == 0 {
		return result, nil
	}
	type bucket struct {
		BatchID uuid.UUID
		Status  string
		N       int64
	}
	var buckets []bucket
	err := r.db.WithContext(ctx).
		Model(&model.Row{}).
		Select("batch_id, status, COUNT(*) AS n").
		Where("batch_id IN ?", batchIDs).
		Group("batch_id, status").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		if result[b.BatchID] == nil {
			result[b.BatchID] = make(map[string]int64)
		}
		result[b.BatchID][b.Status] = b.N
	}
	return result, nil
}

func (r *rowRepository) Facets(ctx context.Context, store string) ([]string, []string, []string, error) {
	distinct := func(column string) ([]string, error) {
		var values []string
		err := r.db.WithContext(ctx).
			Model(&model.Row{}).
			Distinct(column).
			Where("store_code = ? AND "+column+" <> ''", store).
			Order(column + " ASC").
			Pluck(column, &values).Error
		return values, err
	}

	categorie, err := distinct("categoria")
	if err != nil {
		return nil, nil, nil, err
	}
	linee, err := distinct("linea")
	if err != nil {
		return nil, nil, nil, err
	}
	marche, err := distinct("marca")
	if err != nil {
		return nil, nil, nil, err
	}
	return categorie, linee, marche, nil
}
