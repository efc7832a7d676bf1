package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pickline/backend/internal/models"
)

type MockSettler struct {
	mock.Mock
}

func (m *MockSettler) SettleEntry(ctx context.Context, entryID uuid.UUID, outcome models.Outcome) (*models.Entry, error) {
	args := m.Called(entryID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entry), args.Error(1)
}

func (m *MockSettler) SettleContest(ctx context.Context, contestID uuid.UUID, outcome models.Outcome) (*models.SettlementSummary, error) {
	args := m.Called(contestID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettlementSummary), args.Error(1)
}
