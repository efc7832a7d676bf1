package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Page bounds list queries. Results are always ordered most recent first.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize clamps the page into the supported range.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Reconciliation compares a stored balance to the sum of its ledger rows.
type Reconciliation struct {
	UserID     uuid.UUID       `json:"userId"`
	Balance    decimal.Decimal `json:"balance" swaggertype:"string"`
	LedgerSum  decimal.Decimal `json:"ledgerSum" swaggertype:"string"`
	Consistent bool            `json:"consistent"`
}

// SettlementSummary counts entries by resulting status for a contest settlement.
type SettlementSummary struct {
	ContestID uuid.UUID      `json:"contestId"`
	Settled   map[string]int `json:"settled"`
	Skipped   int            `json:"skipped"`
}
