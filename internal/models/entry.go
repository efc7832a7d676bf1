package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is the predicted side of a pick
type Direction string

const (
	DirectionHigher Direction = "HIGHER"
	DirectionLower  Direction = "LOWER"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionHigher || d == DirectionLower
}

// EntryStatus represents entry settlement state
const (
	EntryStatusActive = "ACTIVE"
	EntryStatusWon    = "WON"
	EntryStatusLost   = "LOST"
	EntryStatusVoid   = "VOID"
)

// RequiredPicks is the number of picks every entry carries.
const RequiredPicks = 2

// Pick is one player prediction inside an entry.
type Pick struct {
	PlayerID  uuid.UUID `json:"playerId" db:"player_id" validate:"required"`
	Direction Direction `json:"predictedDirection" db:"direction" validate:"required,oneof=HIGHER LOWER" example:"HIGHER"`
}

// Entry is a user's submitted pair of picks for a contest.
type Entry struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"userId" db:"user_id"`
	ContestID       uuid.UUID       `json:"contestId" db:"contest_id"`
	Picks           []Pick          `json:"picks"`
	EntryFee        decimal.Decimal `json:"entryFee" db:"entry_fee" swaggertype:"string" example:"20.00"`
	PotentialPayout decimal.Decimal `json:"potentialPayout" db:"potential_payout" swaggertype:"string" example:"60.00"`
	Status          string          `json:"status" db:"status" example:"ACTIVE"`
	IdempotencyKey  *string         `json:"-" db:"idempotency_key"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	SettledAt       *time.Time      `json:"settledAt,omitempty" db:"settled_at"`
}

// IsSettled reports whether the entry has left the ACTIVE state.
func (e *Entry) IsSettled() bool {
	return e.Status != EntryStatusActive
}

// Outcome holds the actual stat value per player used to settle entries.
type Outcome map[uuid.UUID]decimal.Decimal
