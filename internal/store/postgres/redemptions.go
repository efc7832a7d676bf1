package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pickline/backend/internal/models"
)

const redemptionColumns = `id, user_id, prize_id, prize_title, cost, status, voucher_code, created_at`

func scanRedemption(row interface{ Scan(dest ...any) error }) (*models.Redemption, error) {
	var r models.Redemption
	err := row.Scan(&r.ID, &r.UserID, &r.PrizeID, &r.PrizeTitle, &r.Cost, &r.Status, &r.VoucherCode, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRedemption(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	const op = "store.postgres.GetRedemption"

	r, err := scanRedemption(s.db.QueryRowContext(ctx,
		`SELECT `+redemptionColumns+` FROM redemptions WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return r, nil
}

func (s *Store) ListRedemptions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Redemption, error) {
	const op = "store.postgres.ListRedemptions"

	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+redemptionColumns+` FROM redemptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	redemptions := []models.Redemption{}
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		redemptions = append(redemptions, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return redemptions, nil
}

func (t *tx) InsertRedemption(ctx context.Context, r *models.Redemption) error {
	const op = "store.postgres.InsertRedemption"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO redemptions (id, user_id, prize_id, prize_title, cost, status, voucher_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.UserID, r.PrizeID, r.PrizeTitle, r.Cost, r.Status, r.VoucherCode, r.CreatedAt)
	return mapErr(op, err)
}
