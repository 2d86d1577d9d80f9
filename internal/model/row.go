package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Row statuses. A row only moves forward along
// draft → approved → published, with the side exits draft → rejected and
// approved → partially_failed. A partially_failed row stays retryable and is
// never demoted back to draft.
const (
	RowStatusDraft           = "draft"
	RowStatusApproved        = "approved"
	RowStatusPublished       = "published"
	RowStatusPartiallyFailed = "partially_failed"
	RowStatusRejected        = "rejected"
)

// Row è una singola modifica di prezzo proposta per uno SKU in una store view.
// Le righe non vengono mai cancellate: gli stati terminali (published,
// rejected) restano a scopo di audit.
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BatchID   uuid.UUID `gorm:"type:uuid;not null;index"`
	SKU       string    `gorm:"not null;index"`
	StoreCode string    `gorm:"not null;index"`

	ProductName string
	Categoria   string `gorm:"index"`
	Linea       string `gorm:"index"`
	Marca       string `gorm:"index"`

	// CurrentPrice is the Magento price snapshot taken at staging time.
	CurrentPrice        *decimal.Decimal `gorm:"type:decimal(12,4)"`
	NewPrice            decimal.Decimal  `gorm:"type:decimal(12,4);not null"`
	NewSpecialPrice     *decimal.Decimal `gorm:"type:decimal(12,4)"`
	NewSpecialPriceFrom *time.Time
	NewSpecialPriceTo   *time.Time

	Status string `gorm:"not null;default:'draft';index"`
	// Errore holds the last adapter error message for partially_failed rows.
	Errore *string

	CreatedBy string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Batch *Batch `gorm:"foreignKey:BatchID"`
}

// Publishable reports whether the row is eligible for a publish attempt.
func (r *Row) Publishable() bool {
	return r.Status == RowStatusApproved || r.Status == RowStatusPartiallyFailed
}

// Terminal reports whether the row can never transition again.
func (r *Row) Terminal() bool {
	return r.Status == RowStatusPublished || r.Status == RowStatusRejected
}
