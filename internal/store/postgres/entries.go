package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pickline/backend/internal/models"
)

const entryColumns = `id, user_id, contest_id, entry_fee, potential_payout, status, idempotency_key, created_at, settled_at`

func scanEntry(row interface{ Scan(dest ...any) error }) (*models.Entry, error) {
	var e models.Entry
	err := row.Scan(&e.ID, &e.UserID, &e.ContestID, &e.EntryFee, &e.PotentialPayout,
		&e.Status, &e.IdempotencyKey, &e.CreatedAt, &e.SettledAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// loadPicks attaches picks, in submitted order, to the given entries.
func loadPicks(ctx context.Context, q querier, entries []*models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	byID := make(map[uuid.UUID]*models.Entry, len(entries))
	for i, e := range entries {
		ids[i] = e.ID.String()
		e.Picks = []models.Pick{}
		byID[e.ID] = e
	}

	rows, err := q.QueryContext(ctx, `
		SELECT entry_id, player_id, direction FROM entry_picks
		WHERE entry_id = ANY($1::uuid[])
		ORDER BY entry_id, position ASC`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entryID uuid.UUID
		var p models.Pick
		if err := rows.Scan(&entryID, &p.PlayerID, &p.Direction); err != nil {
			return err
		}
		if e, ok := byID[entryID]; ok {
			e.Picks = append(e.Picks, p)
		}
	}
	return rows.Err()
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	const op = "store.postgres.GetEntry"

	e, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}
	if err := loadPicks(ctx, s.db, []*models.Entry{e}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// ListEntries returns a user's entries most recent first.
func (s *Store) ListEntries(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Entry, error) {
	const op = "store.postgres.ListEntries"

	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, mapErr(op, err)
	}

	var ptrs []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ptrs = append(ptrs, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	if err := loadPicks(ctx, s.db, ptrs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]models.Entry, 0, len(ptrs))
	for _, e := range ptrs {
		entries = append(entries, *e)
	}
	return entries, nil
}

func (s *Store) ListActiveEntryIDs(ctx context.Context, contestID uuid.UUID) ([]uuid.UUID, error) {
	const op = "store.postgres.ListActiveEntryIDs"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM entries WHERE contest_id = $1 AND status = $2 ORDER BY created_at ASC`,
		contestID, models.EntryStatusActive)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *tx) FindEntryByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Entry, error) {
	const op = "store.postgres.FindEntryByIdempotencyKey"

	e, err := scanEntry(t.tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
	if err != nil {
		return nil, mapErr(op, err)
	}
	if err := loadPicks(ctx, t.tx, []*models.Entry{e}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

// InsertEntry writes the entry row and its picks.
func (t *tx) InsertEntry(ctx context.Context, e *models.Entry) error {
	const op = "store.postgres.InsertEntry"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, contest_id, entry_fee, potential_payout, status, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.UserID, e.ContestID, e.EntryFee, e.PotentialPayout, e.Status, e.IdempotencyKey, e.CreatedAt)
	if err != nil {
		return mapErr(op, err)
	}

	values := make([]string, 0, len(e.Picks))
	args := make([]any, 0, len(e.Picks)*4)
	for i, p := range e.Picks {
		n := i * 4
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
		args = append(args, e.ID, i, p.PlayerID, string(p.Direction))
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO entry_picks (entry_id, position, player_id, direction) VALUES `+strings.Join(values, ", "),
		args...)
	return mapErr(op, err)
}

func (t *tx) LockEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	const op = "store.postgres.LockEntry"

	e, err := scanEntry(t.tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}
	if err := loadPicks(ctx, t.tx, []*models.Entry{e}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return e, nil
}

func (t *tx) UpdateEntryStatus(ctx context.Context, id uuid.UUID, status string, settledAt time.Time) error {
	const op = "store.postgres.UpdateEntryStatus"

	res, err := t.tx.ExecContext(ctx,
		`UPDATE entries SET status = $1, settled_at = $2 WHERE id = $3`, status, settledAt, id)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}
