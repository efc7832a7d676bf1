package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pickline/backend/internal/models"
)

// EvaluateEntry decides the settlement status of a two-pick entry.
//
// Equal stat values void the entry. Otherwise the player with the larger
// value is the higher one; a pick is correct when it predicted HIGHER on
// that player or LOWER on the other. The entry wins only if every pick is
// correct.
func EvaluateEntry(entry *models.Entry, outcome models.Outcome) (string, error) {
	if err := validateOutcome(entry, outcome); err != nil {
		return "", err
	}

	first, second := entry.Picks[0], entry.Picks[1]
	firstValue, secondValue := outcome[first.PlayerID], outcome[second.PlayerID]

	if firstValue.Equal(secondValue) {
		return models.EntryStatusVoid, nil
	}

	higher := first.PlayerID
	if secondValue.GreaterThan(firstValue) {
		higher = second.PlayerID
	}

	for _, pick := range entry.Picks {
		if !pickCorrect(pick, higher) {
			return models.EntryStatusLost, nil
		}
	}
	return models.EntryStatusWon, nil
}

func pickCorrect(pick models.Pick, higher uuid.UUID) bool {
	if pick.PlayerID == higher {
		return pick.Direction == models.DirectionHigher
	}
	return pick.Direction == models.DirectionLower
}

// validateOutcome requires a value for every picked player.
func validateOutcome(entry *models.Entry, outcome models.Outcome) error {
	if len(entry.Picks) != models.RequiredPicks {
		return fmt.Errorf("%w: entry %s has %d picks", ErrInvalidPicks, entry.ID, len(entry.Picks))
	}
	for _, pick := range entry.Picks {
		if _, ok := outcome[pick.PlayerID]; !ok {
			return fmt.Errorf("%w: outcome is missing a value for player %s", ErrValidation, pick.PlayerID)
		}
	}
	return nil
}
