package model

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate batch statuses, always derived from member row statuses on read.
// Persisting them separately would allow batch and row state to drift.
const (
	BatchStatusPending   = "pending"
	BatchStatusApproved  = "approved"
	BatchStatusPartial   = "partial"
	BatchStatusPublished = "published"
	BatchStatusRejected  = "rejected"
)

// Batch raggruppa le righe create insieme per una store view.
type Batch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StoreCode string    `gorm:"not null;index"`
	Nome      string    `gorm:"not null"`
	Note      string
	CreatedBy string `gorm:"not null"`
	CreatedAt time.Time
}

// DeriveBatchStatus computes the aggregate status from per-status row counts.
// An empty batch (not yet initialized) counts as pending.
func DeriveBatchStatus(counts map[string]int64) string {
	var total int64
	for _, n := range counts {
		total += n
	}
	switch {
	case total == 0:
		return BatchStatusPending
	case counts[RowStatusPublished] == total:
		return BatchStatusPublished
	case counts[RowStatusRejected] == total:
		return BatchStatusRejected
	case counts[RowStatusPartiallyFailed] > 0 || counts[RowStatusPublished] > 0:
		return BatchStatusPartial
	case counts[RowStatusDraft] > 0:
		return BatchStatusPending
	default:
		return BatchStatusApproved
	}
}
