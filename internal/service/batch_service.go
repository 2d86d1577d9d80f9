package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"listino/internal/dto"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	lookupCachePrefix = "lookup:"
	lookupCacheTTL    = 60 * time.Second
	dateLayout        = "2006-01-02"
)

// BatchService manages batch lifecycle and row-level reads/edits outside the
// approval gate.
type BatchService interface {
	Create(ctx context.Context, req dto.CreateBatchRequest, actor string) (*dto.BatchResponse, error)
	// Init materializes the store's staged rows into the batch as draft rows.
	// One shot per batch: a second call is a conflict.
	Init(ctx context.Context, batchID uuid.UUID, actor string) (*dto.BatchResponse, error)
	List(ctx context.Context, store string) (*dto.BatchListResponse, error)
	Get(ctx context.Context, batchID uuid.UUID) (*dto.BatchResponse, error)

	ListPending(ctx context.Context, store string, page, limit int) (*dto.RowListResponse, error)
	ListApproved(ctx context.Context, store string, page, limit int) (*dto.RowListResponse, error)
	Rows(ctx context.Context, batchID uuid.UUID) (*dto.RowListResponse, error)
	Search(ctx context.Context, batchID uuid.UUID, req dto.RowSearchRequest) (*dto.RowSearchResponse, error)

	EditRow(ctx context.Context, rowID uuid.UUID, req dto.EditRowRequest) (*dto.RowItem, error)
	Lookup(ctx context.Context, store string) (*dto.LookupResponse, error)
	Audit(ctx context.Context, batchID uuid.UUID) (*dto.AuditListResponse, error)
}

type batchService struct {
	batches repository.BatchRepository
	rows    repository.RowRepository
	staging repository.StagingRepository
	audit   repository.AuditRepository
	rdb     *redis.Client
}

func NewBatchService(
	batches repository.BatchRepository,
	rows repository.RowRepository,
	staging repository.StagingRepository,
	audit repository.AuditRepository,
	rdb *redis.Client,
) BatchService {
	return &batchService{batches: batches, rows: rows, staging: staging, audit: audit, rdb: rdb}
}

func (s *batchService) Create(ctx context.Context, req dto.CreateBatchRequest, actor string) (*dto.BatchResponse, error) {
	batch := &model.Batch{
		StoreCode: req.Store,
		Nome:      req.Nome,
		Note:      req.Note,
		CreatedBy: actor,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	return s.toResponse(batch, model.BatchStatusPending, 0), nil
}

func (s *batchService) Init(ctx context.Context, batchID uuid.UUID, actor string) (*dto.BatchResponse, error) {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	counts, err := s.rows.StatusCounts(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if total(counts) > 0 {
		return nil, fmt.Errorf("%w: batch già inizializzato", ErrConflict)
	}

	staged, err := s.staging.ListByStore(ctx, batch.StoreCode)
	if err != nil {
		return nil, err
	}
	if len(staged) == 0 {
		return nil, fmt.Errorf("%w: nessuna riga importata per lo store %s", ErrValidation, batch.StoreCode)
	}

	rows := make([]*model.Row, 0, len(staged))
	for _, sr := range staged {
		rows = append(rows, &model.Row{
			BatchID:             batchID,
			SKU:                 sr.SKU,
			StoreCode:           sr.StoreCode,
			ProductName:         sr.ProductName,
			Categoria:           sr.Categoria,
			Linea:               sr.Linea,
			Marca:               sr.Marca,
			CurrentPrice:        sr.CurrentPrice,
			NewPrice:            sr.NewPrice,
			NewSpecialPrice:     sr.NewSpecialPrice,
			NewSpecialPriceFrom: sr.NewSpecialPriceFrom,
			NewSpecialPriceTo:   sr.NewSpecialPriceTo,
			Status:              model.RowStatusDraft,
			CreatedBy:           actor,
		})
	}

	// Rows and staging cleanup move together: a crash mid-init must not leave
	// staged rows that could be materialized twice.
	err = runTx(ctx, s.rows.DB(), func(tx *gorm.DB) error {
		if err := s.rows.CreateBulk(ctx, tx, rows); err != nil {
			return err
		}
		return s.staging.DeleteByStore(ctx, tx, batch.StoreCode)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("batch_id", batchID.String()).
		Str("store", batch.StoreCode).
		Int("righe", len(rows)).
		Msg("batch initialized from staging")
	return s.toResponse(batch, model.BatchStatusPending, int64(len(rows))), nil
}

func (s *batchService) List(ctx context.Context, store string) (*dto.BatchListResponse, error) {
	batches, err := s.batches.ListByStore(ctx, store)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(batches))
	for _, b := range batches {
		ids = append(ids, b.ID)
	}
	countsByBatch, err := s.rows.StatusCountsForBatches(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &dto.BatchListResponse{Items: make([]dto.BatchResponse, 0, len(batches))}
	for i := range batches {
		counts := countsByBatch[batches[i].ID]
		resp.Items = append(resp.Items,
			*s.toResponse(&batches[i], model.DeriveBatchStatus(counts), total(counts)))
	}
	return resp, nil
}

func (s *batchService) Get(ctx context.Context, batchID uuid.UUID) (*dto.BatchResponse, error) {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	counts, err := s.rows.StatusCounts(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(batch, model.DeriveBatchStatus(counts), total(counts)), nil
}

func (s *batchService) ListPending(ctx context.Context, store string, page, limit int) (*dto.RowListResponse, error) {
	return s.listByStatus(ctx, store, []string{model.RowStatusDraft}, page, limit)
}

func (s *batchService) ListApproved(ctx context.Context, store string, page, limit int) (*dto.RowListResponse, error) {
	return s.listByStatus(ctx, store,
		[]string{model.RowStatusApproved, model.RowStatusPartiallyFailed}, page, limit)
}

func (s *batchService) listByStatus(ctx context.Context, store string, statuses []string, page, limit int) (*dto.RowListResponse, error) {
	rows, totalCount, err := s.rows.ListByStatus(ctx, store, statuses, page, limit)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	resp := &dto.RowListResponse{
		Items:      make([]dto.RowItem, 0, len(rows)),
		TotalCount: totalCount,
		Page:       page,
		PageSize:   limit,
	}
	for i := range rows {
		resp.Items = append(resp.Items, rowToItem(&rows[i]))
	}
	return resp, nil
}

func (s *batchService) Rows(ctx context.Context, batchID uuid.UUID) (*dto.RowListResponse, error) {
	if _, err := s.findBatch(ctx, batchID); err != nil {
		return nil, err
	}
	rows, err := s.rows.ListByBatch(ctx, batchID, nil)
	if err != nil {
		return nil, err
	}
	resp := &dto.RowListResponse{
		Items:      make([]dto.RowItem, 0, len(rows)),
		TotalCount: int64(len(rows)),
		Page:       1,
		PageSize:   len(rows),
	}
	for i := range rows {
		resp.Items = append(resp.Items, rowToItem(&rows[i]))
	}
	return resp, nil
}

func (s *batchService) Search(ctx context.Context, batchID uuid.UUID, req dto.RowSearchRequest) (*dto.RowSearchResponse, error) {
	if _, err := s.findBatch(ctx, batchID); err != nil {
		return nil, err
	}
	rows, err := s.rows.Search(ctx, batchID, repository.RowFilter{
		SKU:       req.SKU,
		Categoria: req.Categoria,
		Linea:     req.Linea,
		Marca:     req.Marca,
		Status:    req.Status,
	})
	if err != nil {
		return nil, err
	}
	resp := &dto.RowSearchResponse{Items: make([]dto.RowItem, 0, len(rows))}
	for i := range rows {
		resp.Items = append(resp.Items, rowToItem(&rows[i]))
	}
	return resp, nil
}

// EditRow modifies a draft row's prices. Validation happens before any write:
// a failed edit leaves the row exactly as it was.
func (s *batchService) EditRow(ctx context.Context, rowID uuid.UUID, req dto.EditRowRequest) (*dto.RowItem, error) {
	row, err := s.rows.FindByID(ctx, rowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: riga %s", ErrNotFound, rowID)
		}
		return nil, err
	}
	if row.Status != model.RowStatusDraft {
		return nil, fmt.Errorf("%w: solo le righe in stato draft sono modificabili", ErrConflict)
	}

	if req.NewPrice != nil {
		if req.NewPrice.IsNegative() {
			return nil, fmt.Errorf("%w: il prezzo non può essere negativo", ErrValidation)
		}
		row.NewPrice = *req.NewPrice
	}
	if req.NewSpecialPrice != nil {
		if req.NewSpecialPrice.IsNegative() {
			return nil, fmt.Errorf("%w: il prezzo scontato non può essere negativo", ErrValidation)
		}
		row.NewSpecialPrice = req.NewSpecialPrice
	}

	from, err := parseOptionalDate(req.NewSpecialPriceFrom)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDate(req.NewSpecialPriceTo)
	if err != nil {
		return nil, err
	}
	if from != nil {
		row.NewSpecialPriceFrom = from
	}
	if to != nil {
		row.NewSpecialPriceTo = to
	}
	if row.NewSpecialPriceFrom != nil && row.NewSpecialPriceTo != nil &&
		row.NewSpecialPriceFrom.After(*row.NewSpecialPriceTo) {
		return nil, fmt.Errorf("%w: la data di inizio sconto è successiva a quella di fine", ErrValidation)
	}

	if err := s.rows.Save(ctx, row); err != nil {
		return nil, err
	}
	item := rowToItem(row)
	return &item, nil
}

// Lookup returns the filter facets of a store, cached in Redis for a minute.
// A cache miss or a nil client falls through to the DB.
func (s *batchService) Lookup(ctx context.Context, store string) (*dto.LookupResponse, error) {
	key := lookupCachePrefix + store
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var resp dto.LookupResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	categorie, linee, marche, err := s.rows.Facets(ctx, store)
	if err != nil {
		return nil, err
	}
	resp := &dto.LookupResponse{Categorie: categorie, Linee: linee, Marche: marche}

	if s.rdb != nil {
		if encoded, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, key, encoded, lookupCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Str("store", store).Msg("lookup cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *batchService) Audit(ctx context.Context, batchID uuid.UUID) (*dto.AuditListResponse, error) {
	if _, err := s.findBatch(ctx, batchID); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	resp := &dto.AuditListResponse{Items: make([]dto.AuditEntryItem, 0, len(entries))}
	for _, e := range entries {
		item := dto.AuditEntryItem{
			ID:        e.ID.String(),
			Action:    e.Action,
			Actor:     e.Actor,
			RowIDs:    json.RawMessage(e.RowIDs),
			Detail:    json.RawMessage(e.Detail),
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.BatchID != nil {
			id := e.BatchID.String()
			item.BatchID = &id
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

func (s *batchService) findBatch(ctx context.Context, batchID uuid.UUID) (*model.Batch, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: batch %s", ErrNotFound, batchID)
		}
		return nil, err
	}
	return batch, nil
}

func (s *batchService) toResponse(b *model.Batch, stato string, righe int64) *dto.BatchResponse {
	return &dto.BatchResponse{
		BatchID:   b.ID.String(),
		Store:     b.StoreCode,
		Nome:      b.Nome,
		Note:      b.Note,
		Stato:     stato,
		Righe:     righe,
		CreatedBy: b.CreatedBy,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
	}
}

func total(counts map[string]int64) int64 {
	var n int64
	for _, c := range counts {
		n += c
	}
	return n
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: data non valida %q (atteso YYYY-MM-DD)", ErrValidation, *s)
	}
	return &t, nil
}

func rowToItem(r *model.Row) dto.RowItem {
	item := dto.RowItem{
		ID:           r.ID.String(),
		BatchID:      r.BatchID.String(),
		SKU:          r.SKU,
		StoreCode:    r.StoreCode,
		ProductName:  r.ProductName,
		Categoria:    r.Categoria,
		Linea:        r.Linea,
		Marca:        r.Marca,
		CurrentPrice: r.CurrentPrice,
		NewPrice:     r.NewPrice,
		Status:       r.Status,
		Errore:       r.Errore,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	if r.NewSpecialPrice != nil {
		item.NewSpecialPrice = r.NewSpecialPrice
	}
	if r.NewSpecialPriceFrom != nil {
		v := r.NewSpecialPriceFrom.Format(dateLayout)
		item.NewSpecialPriceFrom = &v
	}
	if r.NewSpecialPriceTo != nil {
		v := r.NewSpecialPriceTo.Format(dateLayout)
		item.NewSpecialPriceTo = &v
	}
	return item
}
