package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickline/backend/internal/models"
)

func TestEvaluateEntry(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	entry := func(da, db models.Direction) *models.Entry {
		return &models.Entry{
			ID: uuid.New(),
			Picks: []models.Pick{
				{PlayerID: a, Direction: da},
				{PlayerID: b, Direction: db},
			},
		}
	}
	higher, lower := models.DirectionHigher, models.DirectionLower

	tests := []struct {
		name    string
		entry   *models.Entry
		outcome models.Outcome
		want    string
	}{
		{"a higher, both correct", entry(higher, lower), models.Outcome{a: dec("30"), b: dec("12")}, models.EntryStatusWon},
		{"b higher, both correct", entry(lower, higher), models.Outcome{a: dec("8"), b: dec("12.5")}, models.EntryStatusWon},
		{"both wrong", entry(higher, lower), models.Outcome{a: dec("8"), b: dec("12.5")}, models.EntryStatusLost},
		{"one wrong", entry(higher, higher), models.Outcome{a: dec("30"), b: dec("12")}, models.EntryStatusLost},
		{"same direction other pick wrong", entry(lower, lower), models.Outcome{a: dec("30"), b: dec("12")}, models.EntryStatusLost},
		{"tie", entry(higher, lower), models.Outcome{a: dec("20"), b: dec("20.00")}, models.EntryStatusVoid},
		{"tie at zero", entry(lower, higher), models.Outcome{a: dec("0"), b: dec("0")}, models.EntryStatusVoid},
		{"extra players ignored", entry(higher, lower), models.Outcome{a: dec("3"), b: dec("1"), uuid.New(): dec("99")}, models.EntryStatusWon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateEntry(tt.entry, tt.outcome)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateEntry_Errors(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	e := &models.Entry{Picks: []models.Pick{
		{PlayerID: a, Direction: models.DirectionHigher},
		{PlayerID: b, Direction: models.DirectionLower},
	}}

	_, err := EvaluateEntry(e, models.Outcome{a: dec("1")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = EvaluateEntry(&models.Entry{Picks: e.Picks[:1]}, models.Outcome{a: dec("1")})
	assert.ErrorIs(t, err, ErrInvalidPicks)
}
