package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VatRate è l'aliquota IVA per store view, usata in fase di import per
// scorporare l'IVA dai prezzi lordi. Un'aliquota 0 è uno stato valido
// ("nessuno scorporo"); l'assenza dell'aliquota è invece un errore.
type VatRate struct {
	StoreCode string          `gorm:"primaryKey"`
	StoreName string          `gorm:"not null"`
	Rate      decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	UpdatedAt time.Time
}
