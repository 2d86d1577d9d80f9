package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"listino/internal/dto"
	"listino/internal/infra"
	"listino/internal/model"
	"listino/internal/repository"
	"listino/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// maxParallel bounds concurrent storefront calls during one publish. Magento's
// admin API degrades well before the DB does.
const maxParallel = 5

// StorefrontAdapter is the write side of the storefront. The production
// implementation is infra.MagentoClient; tests substitute a fake.
type StorefrontAdapter interface {
	UpdatePrice(ctx context.Context, upd infra.PriceUpdate) error
}

// PublishService pushes a batch's approved rows to the storefront. Unlike the
// approval gate, publish is per-row: one failing SKU never blocks the others,
// and a re-publish touches only the rows that are still unpublished.
type PublishService interface {
	Publish(ctx context.Context, batchID uuid.UUID, actor string) (*dto.PublishResponse, error)
	// Report renders the latest publish outcome of the batch as a PDF.
	Report(ctx context.Context, batchID uuid.UUID) ([]byte, error)
}

type publishService struct {
	rows        repository.RowRepository
	batches     repository.BatchRepository
	audit       repository.AuditRepository
	adapter     StorefrontAdapter
	dispatcher  *worker.Dispatcher
	notifyEmail string

	locks rowLocks
}

func NewPublishService(
	rows repository.RowRepository,
	batches repository.BatchRepository,
	audit repository.AuditRepository,
	adapter StorefrontAdapter,
	dispatcher *worker.Dispatcher,
	notifyEmail string,
) PublishService {
	return &publishService{
		rows:        rows,
		batches:     batches,
		audit:       audit,
		adapter:     adapter,
		dispatcher:  dispatcher,
		notifyEmail: notifyEmail,
	}
}

// rowLocks serializes publish attempts per row id, so two overlapping publish
// calls for the same batch cannot double-write a SKU.
type rowLocks struct {
	m sync.Map // uuid.UUID → *sync.Mutex
}

func (l *rowLocks) lock(id uuid.UUID) func() {
	mu, _ := l.m.LoadOrStore(id, &sync.Mutex{})
	mutex := mu.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

func (s *publishService) Publish(ctx context.Context, batchID uuid.UUID, actor string) (*dto.PublishResponse, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: batch %s", ErrNotFound, batchID)
		}
		return nil, err
	}

	all, err := s.rows.ListByBatch(ctx, batchID, nil)
	if err != nil {
		return nil, err
	}

	var publishable []model.Row
	published := 0
	for _, r := range all {
		switch {
		case r.Publishable():
			publishable = append(publishable, r)
		case r.Status == model.RowStatusPublished:
			published++
		}
	}

	if len(publishable) == 0 {
		if published == 0 {
			return nil, fmt.Errorf("%w: il batch non ha righe approvate da pubblicare", ErrValidation)
		}
		// Every row is already live: re-publishing is a no-op success, recorded
		// in the trail but never re-sent to the storefront.
		resp := &dto.PublishResponse{Esito: dto.EsitoSuccess, Errori: []dto.PublishError{}}
		if err := s.appendAudit(ctx, batch, actor, nil, resp); err != nil {
			return nil, err
		}
		return resp, nil
	}

	var (
		mu     sync.Mutex
		errori []dto.PublishError
		sem    = make(chan struct{}, maxParallel)
		wg     sync.WaitGroup
	)
	rowIDs := make([]uuid.UUID, 0, len(publishable))
	for _, r := range publishable {
		rowIDs = append(rowIDs, r.ID)
	}

	for i := range publishable {
		row := publishable[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if perr := s.publishRow(ctx, &row); perr != nil {
				mu.Lock()
				errori = append(errori, dto.PublishError{SKU: row.SKU, Errore: perr.Error()})
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(errori, func(i, j int) bool { return errori[i].SKU < errori[j].SKU })

	resp := &dto.PublishResponse{Errori: errori}
	switch {
	case len(errori) == 0:
		resp.Esito = dto.EsitoSuccess
	case len(errori) == len(publishable):
		resp.Esito = dto.EsitoError
	default:
		resp.Esito = dto.EsitoPartial
	}
	if resp.Errori == nil {
		resp.Errori = []dto.PublishError{}
	}

	if err := s.appendAudit(ctx, batch, actor, rowIDs, resp); err != nil {
		return nil, err
	}
	s.notify(ctx, batch, actor, resp)

	log.Info().
		Str("batch_id", batchID.String()).
		Str("actor", actor).
		Str("esito", resp.Esito).
		Int("righe", len(publishable)).
		Int("errori", len(errori)).
		Msg("publish completed")
	return resp, nil
}

// publishRow pushes one row under its per-row lock. The status is re-read
// inside the lock: if a concurrent publish already promoted the row, the
// storefront call is skipped entirely.
func (s *publishService) publishRow(ctx context.Context, row *model.Row) error {
	unlock := s.locks.lock(row.ID)
	defer unlock()

	fresh, err := s.rows.FindByID(ctx, row.ID)
	if err != nil {
		return err
	}
	if fresh.Status == model.RowStatusPublished {
		return nil
	}
	if !fresh.Publishable() {
		return fmt.Errorf("riga in stato %s, non pubblicabile", fresh.Status)
	}

	upd := infra.PriceUpdate{
		SKU:                 fresh.SKU,
		StoreCode:           fresh.StoreCode,
		BasePrice:           fresh.NewPrice,
		SpecialPrice:        fresh.NewSpecialPrice,
		NewSpecialPriceFrom: fresh.NewSpecialPriceFrom,
		NewSpecialPriceTo:   fresh.NewSpecialPriceTo,
	}

	if err := s.adapter.UpdatePrice(ctx, upd); err != nil {
		// No automatic retry: the row stays partially_failed until an operator
		// re-publishes the batch.
		msg := err.Error()
		if uerr := s.rows.SetPublishOutcome(ctx, fresh.ID, model.RowStatusPartiallyFailed, &msg); uerr != nil {
			log.Error().Err(uerr).Str("row_id", fresh.ID.String()).Msg("failed to record publish failure")
		}
		return err
	}
	return s.rows.SetPublishOutcome(ctx, fresh.ID, model.RowStatusPublished, nil)
}

// appendAudit writes the single trail entry a publish call produces, whether
// it touched the storefront or short-circuited.
func (s *publishService) appendAudit(ctx context.Context, batch *model.Batch, actor string, rowIDs []uuid.UUID, resp *dto.PublishResponse) error {
	entry := &model.AuditEntry{
		BatchID: &batch.ID,
		Action:  model.AuditActionPublish,
		Actor:   actor,
		RowIDs:  uuidsToJSON(rowIDs),
		Detail: toJSON(map[string]interface{}{
			"esito":  resp.Esito,
			"errori": resp.Errori,
		}),
	}
	return s.audit.Append(ctx, nil, entry)
}

// notify enqueues the outcome email. Best-effort: a full Redis never fails
// the publish itself.
func (s *publishService) notify(ctx context.Context, batch *model.Batch, actor string, resp *dto.PublishResponse) {
	if s.dispatcher == nil || s.notifyEmail == "" {
		return
	}
	payload := worker.NotificaPayload{
		To:        s.notifyEmail,
		BatchNome: batch.Nome,
		Store:     batch.StoreCode,
		Actor:     actor,
		Esito:     resp.Esito,
	}
	for _, e := range resp.Errori {
		payload.Errori = append(payload.Errori, struct {
			SKU    string `json:"sku"`
			Errore string `json:"errore"`
		}{SKU: e.SKU, Errore: e.Errore})
	}
	if err := s.dispatcher.EnqueueNotifica(ctx, payload); err != nil {
		log.Error().Err(err).Str("batch_id", batch.ID.String()).Msg("failed to enqueue publish notification")
	}
}

func (s *publishService) Report(ctx context.Context, batchID uuid.UUID) ([]byte, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: batch %s", ErrNotFound, batchID)
		}
		return nil, err
	}

	entry, err := s.audit.LastByBatchAndAction(ctx, batchID, model.AuditActionPublish)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: il batch non è mai stato pubblicato", ErrValidation)
		}
		return nil, err
	}

	rows, err := s.rows.ListByBatch(ctx, batchID, []string{model.RowStatusPublished, model.RowStatusPartiallyFailed})
	if err != nil {
		return nil, err
	}

	esito := dto.EsitoSuccess
	lines := make([]infra.PublishReportLine, 0, len(rows))
	for _, r := range rows {
		line := infra.PublishReportLine{
			SKU:      r.SKU,
			Status:   r.Status,
			NewPrice: r.NewPrice.StringFixed(2),
		}
		if r.Errore != nil {
			line.Errore = *r.Errore
		}
		if r.Status == model.RowStatusPartiallyFailed {
			esito = dto.EsitoPartial
		}
		lines = append(lines, line)
	}

	return infra.GeneratePublishReport(batch, entry, esito, lines)
}
