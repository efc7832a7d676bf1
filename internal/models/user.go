package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a wallet holder. Balance is only changed by ledger operations.
type User struct {
	ID           uuid.UUID       `json:"id" db:"id" example:"9b2f7c1e-4d3a-4a57-9b0e-2d1c5f6a7b8c"`
	Email        string          `json:"email" db:"email" example:"user@example.com"`
	DisplayName  string          `json:"displayName" db:"display_name" example:"Jordan"`
	PasswordHash string          `json:"-" db:"password_hash"`
	Role         string          `json:"role" db:"role" example:"user"`
	Balance      decimal.Decimal `json:"balance" db:"balance" swaggertype:"string" example:"100.00"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
	DeletedAt    *time.Time      `json:"-" db:"deleted_at"`
}

// IsAdmin reports whether the user may call settlement and payout endpoints.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
