package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the balance-affecting event
const (
	TxTypeDeposit      = "DEPOSIT"
	TxTypeWithdrawal   = "WITHDRAWAL"
	TxTypeContestEntry = "CONTEST_ENTRY"
	TxTypeContestWin   = "CONTEST_WIN"
	TxTypeRefund       = "REFUND"
	TxTypeRedemption   = "REDEMPTION"
)

// TransactionStatus represents ledger row status
const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusFailed    = "FAILED"
)

// Transaction is an append-only ledger row. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"userId" db:"user_id"`
	Type        string          `json:"type" db:"type" example:"CONTEST_ENTRY"`
	Amount      decimal.Decimal `json:"amount" db:"amount" swaggertype:"string" example:"-20.00"`
	Status      string          `json:"status" db:"status" example:"COMPLETED"`
	ReferenceID *uuid.UUID      `json:"referenceId,omitempty" db:"reference_id"`
	Description string          `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// CountsTowardBalance reports whether the row is reflected in the user's
// balance: completed rows, plus pending withdrawals which debit up front.
func (t *Transaction) CountsTowardBalance() bool {
	switch t.Status {
	case TxStatusCompleted:
		return true
	case TxStatusPending:
		return t.Type == TxTypeWithdrawal
	}
	return false
}
