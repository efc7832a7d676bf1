package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RedemptionStatus represents prize fulfilment state
const (
	RedemptionStatusPending   = "PENDING"
	RedemptionStatusFulfilled = "FULFILLED"
	RedemptionStatusRejected  = "REJECTED"
)

// Redemption is a prize purchased with balance.
type Redemption struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"userId" db:"user_id"`
	PrizeID     string          `json:"prizeId,omitempty" db:"prize_id"`
	PrizeTitle  string          `json:"prizeTitle" db:"prize_title" example:"Team Jersey"`
	Cost        decimal.Decimal `json:"cost" db:"cost" swaggertype:"string" example:"2500.00"`
	Status      string          `json:"status" db:"status" example:"PENDING"`
	VoucherCode string          `json:"voucherCode" db:"voucher_code"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}
