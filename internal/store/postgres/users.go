package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
)

const userColumns = `id, email, display_name, password_hash, role, balance, created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role,
		&u.Balance, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "store.postgres.GetUser"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "store.postgres.GetUserByEmail"

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// LockUser reads the user row with FOR UPDATE. Concurrent balance mutations
// for the same user queue here until the holder commits or rolls back.
func (t *tx) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "store.postgres.LockUser"

	row := t.tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

func (t *tx) InsertUser(ctx context.Context, u *models.User) error {
	const op = "store.postgres.InsertUser"

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash, role, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Role, u.Balance, u.CreatedAt, u.UpdatedAt)
	return mapErr(op, err)
}

func (t *tx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	const op = "store.postgres.UpdateBalance"

	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET balance = $1, updated_at = $2 WHERE id = $3`,
		balance, time.Now().UTC(), id)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}

func (t *tx) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "store.postgres.SoftDeleteUser"

	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`, at, id)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}
