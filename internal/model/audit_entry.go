package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditActionApprove = "approve"
	AuditActionReject  = "reject"
	AuditActionPublish = "publish"
)

// AuditEntry registra chi ha eseguito ogni transizione e quando.
// Append-only: le voci non vengono mai modificate né cancellate.
type AuditEntry struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BatchID *uuid.UUID `gorm:"type:uuid;index"`
	Action  string     `gorm:"not null;index"`
	Actor   string     `gorm:"not null"`
	// RowIDs is a JSON array of the row ids covered by this transition.
	RowIDs string `gorm:"type:jsonb;not null;default:'[]'"`
	// Detail is a JSON document: the rejection reason, or the per-SKU error
	// list for a publish.
	Detail    string `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time
}
