package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContestStatus represents contest lifecycle
const (
	ContestStatusOpen   = "OPEN"
	ContestStatusLocked = "LOCKED"
	ContestStatusClosed = "CLOSED"
)

// Contest groups the players users can pick for a single slate of games.
type Contest struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Title            string          `json:"title" db:"title" example:"NBA Tuesday Showdown"`
	Sport            string          `json:"sport" db:"sport" example:"NBA"`
	Status           string          `json:"status" db:"status" example:"OPEN"`
	PayoutMultiplier decimal.Decimal `json:"payoutMultiplier" db:"payout_multiplier" swaggertype:"string" example:"3.00"`
	MinEntryFee      decimal.Decimal `json:"minEntryFee" db:"min_entry_fee" swaggertype:"string" example:"1.00"`
	MaxEntryFee      decimal.Decimal `json:"maxEntryFee" db:"max_entry_fee" swaggertype:"string" example:"500.00"`
	StartsAt         time.Time       `json:"startsAt" db:"starts_at"`
	CreatedAt        time.Time       `json:"createdAt" db:"created_at"`
	Players          []Player        `json:"players,omitempty"`
}

// IsOpen reports whether new entries are accepted.
func (c *Contest) IsOpen() bool {
	return c.Status == ContestStatusOpen
}

// AcceptsFee reports whether fee falls inside the contest's entry fee range.
func (c *Contest) AcceptsFee(fee decimal.Decimal) bool {
	if fee.LessThan(c.MinEntryFee) {
		return false
	}
	if c.MaxEntryFee.IsPositive() && fee.GreaterThan(c.MaxEntryFee) {
		return false
	}
	return true
}

// Player is a pickable athlete within a contest.
type Player struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ContestID    uuid.UUID `json:"contestId" db:"contest_id"`
	Name         string    `json:"name" db:"name" example:"J. Tatum"`
	Team         string    `json:"team" db:"team" example:"BOS"`
	Position     string    `json:"position" db:"position" example:"F"`
	StatCategory string    `json:"statCategory" db:"stat_category" example:"points"`
	ImageURL     string    `json:"imageUrl,omitempty" db:"image_url"`
}
