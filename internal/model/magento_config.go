package model

import "time"

// MagentoConfig holds the storefront credentials, persisted as a single row
// (ID is always 1) so the client survives restarts.
type MagentoConfig struct {
	ID          int    `gorm:"primaryKey"`
	MagentoURL  string `gorm:"not null"`
	AccessToken string `gorm:"not null"`
	UpdatedAt   time.Time
}
