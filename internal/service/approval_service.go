package service

import (
	"context"
	"encoding/json"
	"fmt"

	"listino/internal/dto"
	"listino/internal/model"
	"listino/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalService is the gate between draft and publishable rows. Both calls
// are all-or-nothing: if any targeted row fails its status precondition the
// whole request is refused and nothing is mutated — unlike publish, which has
// per-row partial semantics.
type ApprovalService interface {
	// Approve moves the targeted rows draft → approved. An empty rowIDs set
	// with a batch id targets every draft row of that batch.
	Approve(ctx context.Context, batchID *uuid.UUID, rowIDs []uuid.UUID, actor string) (*dto.GateResponse, error)
	// Reject moves the targeted rows draft → rejected (terminal). The reason
	// is mandatory and stored verbatim in the audit entry.
	Reject(ctx context.Context, rowIDs []uuid.UUID, actor, reason string) (*dto.GateResponse, error)
}

type approvalService struct {
	rows  repository.RowRepository
	audit repository.AuditRepository
}

func NewApprovalService(rows repository.RowRepository, audit repository.AuditRepository) ApprovalService {
	return &approvalService{rows: rows, audit: audit}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func (s *approvalService) Approve(ctx context.Context, batchID *uuid.UUID, rowIDs []uuid.UUID, actor string) (*dto.GateResponse, error) {
	ids := rowIDs
	if len(ids) == 0 {
		if batchID == nil {
			return nil, fmt.Errorf("%w: nessuna riga da approvare", ErrValidation)
		}
		var err error
		ids, err = s.rows.IDsByBatchAndStatus(ctx, *batchID, model.RowStatusDraft)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: il batch non ha righe in stato draft", ErrValidation)
		}
	}

	return s.transition(ctx, batchID, ids, actor, model.AuditActionApprove,
		model.RowStatusApproved, map[string]interface{}{"count": len(ids)})
}

func (s *approvalService) Reject(ctx context.Context, rowIDs []uuid.UUID, actor, reason string) (*dto.GateResponse, error) {
	if len(rowIDs) == 0 {
		return nil, fmt.Errorf("%w: nessuna riga da rifiutare", ErrValidation)
	}
	if reason == "" {
		return nil, fmt.Errorf("%w: il motivo del rifiuto è obbligatorio", ErrValidation)
	}

	// The batch id for the audit entry comes from the rows themselves.
	batchID, err := s.commonBatchID(ctx, rowIDs)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, batchID, rowIDs, actor, model.AuditActionReject,
		model.RowStatusRejected, map[string]interface{}{"reason": reason})
}

// transition performs the compare-and-set flip draft → toStatus for the whole
// id set inside one transaction, appending exactly one audit entry. A losing
// concurrent caller gets ErrConflict with the offending ids and no mutation.
func (s *approvalService) transition(
	ctx context.Context,
	batchID *uuid.UUID,
	ids []uuid.UUID,
	actor, action, toStatus string,
	detail map[string]interface{},
) (*dto.GateResponse, error) {
	txErr := runTx(ctx, s.rows.DB(), func(tx *gorm.DB) error {
		affected, err := s.rows.UpdateStatusCAS(ctx, tx, ids, []string{model.RowStatusDraft}, toStatus)
		if err != nil {
			return err
		}
		if affected != int64(len(ids)) {
			// Rolling back undoes the rows that did match.
			return ErrConflict
		}
		entry := &model.AuditEntry{
			BatchID: batchID,
			Action:  action,
			Actor:   actor,
			RowIDs:  uuidsToJSON(ids),
			Detail:  toJSON(detail),
		}
		return s.audit.Append(ctx, tx, entry)
	})

	if txErr == nil {
		return &dto.GateResponse{Success: true}, nil
	}
	if txErr != ErrConflict {
		return nil, txErr
	}

	failed, err := s.failedIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &dto.GateResponse{Success: false, FailedIDs: failed},
		fmt.Errorf("%w: una o più righe non sono in stato draft", ErrConflict)
}

// failedIDs reports which ids violated the draft precondition: rows in another
// status, plus ids that do not exist at all.
func (s *approvalService) failedIDs(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	rows, err := s.rows.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]string, len(rows))
	for _, r := range rows {
		found[r.ID] = r.Status
	}
	var failed []string
	for _, id := range ids {
		status, ok := found[id]
		if !ok || status != model.RowStatusDraft {
			failed = append(failed, id.String())
		}
	}
	return failed, nil
}

func (s *approvalService) commonBatchID(ctx context.Context, ids []uuid.UUID) (*uuid.UUID, error) {
	rows, err := s.rows.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: righe non trovate", ErrNotFound)
	}
	batchID := rows[0].BatchID
	for _, r := range rows[1:] {
		if r.BatchID != batchID {
			// Cross-batch rejects are legal; the audit entry just loses the
			// single batch reference.
			return nil, nil
		}
	}
	return &batchID, nil
}

func uuidsToJSON(ids []uuid.UUID) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return toJSON(strs)
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
