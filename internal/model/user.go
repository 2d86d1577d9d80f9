package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles. Operators stage and edit drafts; approvers additionally approve,
// reject and publish; administrators also manage credentials and VAT rates.
const (
	RolOperatore      = "operatore"
	RolApprovatore    = "approvatore"
	RolAmministratore = "amministratore"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nome         string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Rol          string    `gorm:"not null;default:'operatore'"`
	Activo       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
