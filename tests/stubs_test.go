package tests

// stubs_test.go
// In-memory repository stubs and a programmable storefront fake shared by the
// unit tests. DB() returns nil so services run their transactional closures
// directly.

import (
	"context"
	"sort"
	"strings"
	"sync"

	"listino/internal/infra"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Row repository ───────────────────────────────────────────────────────────

type stubRowRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Row
}

func newStubRowRepo() *stubRowRepo {
	return &stubRowRepo{rows: make(map[uuid.UUID]*model.Row)}
}

func (r *stubRowRepo) add(row *model.Row) *model.Row {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = model.RowStatusDraft
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = row
	return row
}

func (r *stubRowRepo) CreateBulk(_ context.Context, _ *gorm.DB, rows []*model.Row) error {
	for _, row := range rows {
		r.add(row)
	}
	return nil
}

func (r *stubRowRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *stubRowRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Row
	for _, id := range ids {
		if row, ok := r.rows[id]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *stubRowRepo) Save(_ context.Context, row *model.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *row
	r.rows[row.ID] = &cp
	return nil
}

func (r *stubRowRepo) ListByStatus(_ context.Context, store string, statuses []string, page, limit int) ([]model.Row, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Row
	for _, row := range r.rows {
		if store != "" && row.StoreCode != store {
			continue
		}
		for _, st := range statuses {
			if row.Status == st {
				all = append(all, *row)
				break
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })

	total := int64(len(all))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *stubRowRepo) ListByBatch(_ context.Context, batchID uuid.UUID, statuses []string) ([]model.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Row
	for _, row := range r.rows {
		if row.BatchID != batchID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if row.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *stubRowRepo) Search(_ context.Context, batchID uuid.UUID, f repository.RowFilter) ([]model.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Row
	for _, row := range r.rows {
		if row.BatchID != batchID {
			continue
		}
		if f.SKU != "" && !strings.Contains(strings.ToLower(row.SKU), strings.ToLower(f.SKU)) {
			continue
		}
		if f.Categoria != "" && row.Categoria != f.Categoria {
			continue
		}
		if f.Linea != "" && row.Linea != f.Linea {
			continue
		}
		if f.Marca != "" && row.Marca != f.Marca {
			continue
		}
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *stubRowRepo) UpdateStatusCAS(_ context.Context, _ *gorm.DB, ids []uuid.UUID, fromStatuses []string, toStatus string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// All-or-nothing like the SQL UPDATE inside a rolled-back transaction:
	// count the matches first, mutate only when everything matches.
	var matched []uuid.UUID
	for _, id := range ids {
		row, ok := r.rows[id]
		if !ok {
			continue
		}
		for _, st := range fromStatuses {
			if row.Status == st {
				matched = append(matched, id)
				break
			}
		}
	}
	if len(matched) == len(ids) {
		for _, id := range matched {
			r.rows[id].Status = toStatus
		}
	}
	return int64(len(matched)), nil
}

func (r *stubRowRepo) SetPublishOutcome(_ context.Context, id uuid.UUID, status string, errore *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = status
	row.Errore = errore
	return nil
}

func (r *stubRowRepo) IDsByBatchAndStatus(_ context.Context, batchID uuid.UUID, status string) ([]uuid.UUID, error) {
	rows, _ := r.ListByBatch(context.Background(), batchID, []string{status})
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *stubRowRepo) StatusCounts(_ context.Context, batchID uuid.UUID) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, row := range r.rows {
		if row.BatchID == batchID {
			counts[row.Status]++
		}
	}
	return counts, nil
}

func (r *stubRowRepo) StatusCountsForBatches(ctx context.Context, batchIDs []uuid.UUID) (map[uuid.UUID]map[string]int64, error) {
	out := make(map[uuid.UUID]map[string]int64)
	for _, id := range batchIDs {
		counts, _ := r.StatusCounts(ctx, id)
		if len(counts) > 0 {
			out[id] = counts
		}
	}
	return out, nil
}

func (r *stubRowRepo) Facets(_ context.Context, store string) ([]string, []string, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cat, lin, mar := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, row := range r.rows {
		if row.StoreCode != store {
			continue
		}
		if row.Categoria != "" {
			cat[row.Categoria] = true
		}
		if row.Linea != "" {
			lin[row.Linea] = true
		}
		if row.Marca != "" {
			mar[row.Marca] = true
		}
	}
	keys := func(m map[string]bool) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	}
	return keys(cat), keys(lin), keys(mar), nil
}

func (r *stubRowRepo) DB() *gorm.DB { return nil }

var _ repository.RowRepository = (*stubRowRepo)(nil)

// ── Batch repository ─────────────────────────────────────────────────────────

type stubBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*model.Batch
}

func newStubBatchRepo() *stubBatchRepo {
	return &stubBatchRepo{batches: make(map[uuid.UUID]*model.Batch)}
}

func (r *stubBatchRepo) Create(_ context.Context, b *model.Batch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
	return nil
}

func (r *stubBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *stubBatchRepo) ListByStore(_ context.Context, store string) ([]model.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Batch
	for _, b := range r.batches {
		if store == "" || b.StoreCode == store {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nome < out[j].Nome })
	return out, nil
}

var _ repository.BatchRepository = (*stubBatchRepo)(nil)

// ── Audit repository ─────────────────────────────────────────────────────────

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (r *stubAuditRepo) Append(_ context.Context, _ *gorm.DB, e *model.AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubAuditRepo) ListByBatch(_ context.Context, batchID uuid.UUID) ([]model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range r.entries {
		if e.BatchID != nil && *e.BatchID == batchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) LastByBatchAndAction(_ context.Context, batchID uuid.UUID, action string) (*model.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if e.BatchID != nil && *e.BatchID == batchID && e.Action == action {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAuditRepo) byAction(action string) []model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

// ── Staging repository ───────────────────────────────────────────────────────

type stubStagingRepo struct {
	mu      sync.Mutex
	byStore map[string][]model.StagingRow
}

func newStubStagingRepo() *stubStagingRepo {
	return &stubStagingRepo{byStore: make(map[string][]model.StagingRow)}
}

func (r *stubStagingRepo) ReplaceForStore(_ context.Context, store string, rows []*model.StagingRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StagingRow, 0, len(rows))
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		out = append(out, *row)
	}
	r.byStore[store] = out
	return nil
}

func (r *stubStagingRepo) ListByStore(_ context.Context, store string) ([]model.StagingRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.StagingRow(nil), r.byStore[store]...), nil
}

func (r *stubStagingRepo) DeleteByStore(_ context.Context, _ *gorm.DB, store string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byStore, store)
	return nil
}

var _ repository.StagingRepository = (*stubStagingRepo)(nil)

// ── VAT rate repository ──────────────────────────────────────────────────────

type stubVatRepo struct {
	mu    sync.Mutex
	rates map[string]model.VatRate
}

func newStubVatRepo() *stubVatRepo {
	return &stubVatRepo{rates: make(map[string]model.VatRate)}
}

func (r *stubVatRepo) GetAll(_ context.Context) ([]model.VatRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.VatRate
	for _, v := range r.rates {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreCode < out[j].StoreCode })
	return out, nil
}

func (r *stubVatRepo) GetByStore(_ context.Context, store string) (*model.VatRate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rates[store]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (r *stubVatRepo) UpsertAll(_ context.Context, rates []model.VatRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range rates {
		r.rates[v.StoreCode] = v
	}
	return nil
}

var _ repository.VatRateRepository = (*stubVatRepo)(nil)

// ── Storefront fake ──────────────────────────────────────────────────────────

// fakeAdapter records every UpdatePrice call and fails the SKUs listed in
// failSKUs with the given error.
type fakeAdapter struct {
	mu       sync.Mutex
	calls    []infra.PriceUpdate
	failSKUs map[string]error
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{failSKUs: make(map[string]error)}
}

func (a *fakeAdapter) UpdatePrice(_ context.Context, upd infra.PriceUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, upd)
	if err, ok := a.failSKUs[upd.SKU]; ok {
		return err
	}
	return nil
}

func (a *fakeAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

func (a *fakeAdapter) callsForSKU(sku string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c.SKU == sku {
			n++
		}
	}
	return n
}
