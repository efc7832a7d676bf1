package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
)

const transactionColumns = `id, user_id, type, amount, status, reference_id, description, created_at, updated_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status,
		&t.ReferenceID, &t.Description, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	const op = "store.postgres.GetTransaction"

	t, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Transaction, error) {
	const op = "store.postgres.ListTransactions"

	page = page.Normalize()
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return txs, nil
}

// SumLedger adds up every row reflected in the balance: completed rows plus
// withdrawals still waiting on the payout processor.
func (s *Store) SumLedger(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return sumLedger(ctx, s.db, "store.postgres.SumLedger", userID)
}

// SumLedger is the locked variant used while the user row is held.
func (t *tx) SumLedger(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return sumLedger(ctx, t.tx, "store.postgres.tx.SumLedger", userID)
}

func sumLedger(ctx context.Context, q querier, op string, userID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1
		  AND (status = $2 OR (status = $3 AND type = $4))`,
		userID, models.TxStatusCompleted, models.TxStatusPending, models.TxTypeWithdrawal).Scan(&sum)
	if err != nil {
		return decimal.Zero, mapErr(op, err)
	}
	return sum, nil
}

func (t *tx) InsertTransaction(ctx context.Context, lt *models.Transaction) error {
	const op = "store.postgres.InsertTransaction"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, status, reference_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		lt.ID, lt.UserID, lt.Type, lt.Amount, lt.Status, lt.ReferenceID, lt.Description, lt.CreatedAt, lt.UpdatedAt)
	return mapErr(op, err)
}

func (t *tx) LockTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	const op = "store.postgres.LockTransaction"

	lt, err := scanTransaction(t.tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return lt, nil
}

// UpdateTransactionStatus only moves rows out of PENDING; completed and
// failed rows are immutable.
func (t *tx) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	const op = "store.postgres.UpdateTransactionStatus"

	res, err := t.tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		status, at, id, models.TxStatusPending)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}
