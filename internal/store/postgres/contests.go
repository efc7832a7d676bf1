package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pickline/backend/internal/models"
)

const contestColumns = `id, title, sport, status, payout_multiplier, min_entry_fee, max_entry_fee, starts_at, created_at`

func scanContest(row interface{ Scan(dest ...any) error }) (*models.Contest, error) {
	var c models.Contest
	err := row.Scan(&c.ID, &c.Title, &c.Sport, &c.Status, &c.PayoutMultiplier,
		&c.MinEntryFee, &c.MaxEntryFee, &c.StartsAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContests returns contests by start time. An empty status lists all.
func (s *Store) ListContests(ctx context.Context, status string) ([]models.Contest, error) {
	const op = "store.postgres.ListContests"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+contestColumns+` FROM contests
		WHERE ($1 = '' OR status = $1)
		ORDER BY starts_at ASC, id ASC`, status)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	contests := []models.Contest{}
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		contests = append(contests, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return contests, nil
}

func (s *Store) GetContest(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	const op = "store.postgres.GetContest"

	row := s.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1`, id)
	c, err := scanContest(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return c, nil
}

func (s *Store) ListPlayers(ctx context.Context, contestID uuid.UUID) ([]models.Player, error) {
	const op = "store.postgres.ListPlayers"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contest_id, name, team, position, stat_category, image_url
		FROM players WHERE contest_id = $1 ORDER BY name ASC`, contestID)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.ContestID, &p.Name, &p.Team, &p.Position, &p.StatCategory, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return players, nil
}

// LockContest reads the contest row FOR SHARE. Entries for the same contest
// do not block each other; UpdateContestStatus waits until they commit.
func (t *tx) LockContest(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	const op = "store.postgres.LockContest"

	row := t.tx.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1 FOR SHARE`, id)
	c, err := scanContest(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return c, nil
}

func (t *tx) UpdateContestStatus(ctx context.Context, id uuid.UUID, status string) error {
	const op = "store.postgres.UpdateContestStatus"

	res, err := t.tx.ExecContext(ctx, `UPDATE contests SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}
