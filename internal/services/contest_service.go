package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store"
)

// ContestService is the read-only contest catalog.
type ContestService struct {
	store store.Store
}

func NewContestService(st store.Store) *ContestService {
	return &ContestService{store: st}
}

// ListContests returns contests ordered by start time. An empty status lists
// every contest.
func (s *ContestService) ListContests(ctx context.Context, status string) ([]models.Contest, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", models.ContestStatusOpen, models.ContestStatusLocked, models.ContestStatusClosed:
	default:
		return nil, fmt.Errorf("%w: unknown contest status %q", ErrValidation, status)
	}

	contests, err := s.store.ListContests(ctx, status)
	if err != nil {
		return nil, ctxErr(ctx, err)
	}
	return contests, nil
}

// GetContest returns a contest with its players.
func (s *ContestService) GetContest(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	contest, err := s.store.GetContest(ctx, id)
	if err != nil {
		return nil, ctxErr(ctx, notFound(err, "contest "+id.String()))
	}

	players, err := s.store.ListPlayers(ctx, id)
	if err != nil {
		return nil, ctxErr(ctx, err)
	}
	contest.Players = players
	return contest, nil
}
