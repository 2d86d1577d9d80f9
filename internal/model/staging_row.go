package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StagingRow è una riga importata da Excel in attesa di essere agganciata a un
// batch. I prezzi sono già al netto dell'IVA: lo scorporo avviene una sola
// volta, al momento dell'import, mai su un prezzo già netto.
type StagingRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StoreCode string    `gorm:"not null;index"`
	SKU       string    `gorm:"not null"`

	ProductName string
	Categoria   string
	Linea       string
	Marca       string

	CurrentPrice        *decimal.Decimal `gorm:"type:decimal(12,4)"`
	NewPrice            decimal.Decimal  `gorm:"type:decimal(12,4);not null"`
	NewSpecialPrice     *decimal.Decimal `gorm:"type:decimal(12,4)"`
	NewSpecialPriceFrom *time.Time
	NewSpecialPriceTo   *time.Time

	CreatedBy string `gorm:"not null"`
	CreatedAt time.Time
}
