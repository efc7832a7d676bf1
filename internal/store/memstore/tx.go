package memstore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store"
)

type tx struct {
	data   *data
	faults map[string]error
}

var _ store.Tx = (*tx)(nil)

// check returns an injected fault or the context error, mimicking a driver
// that aborts statements once the request is cancelled.
func (t *tx) check(ctx context.Context, method string) error {
	if err := t.faults[method]; err != nil {
		return fmt.Errorf("memstore.%s: %w", method, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore.%s: %w", method, err)
	}
	return nil
}

func (t *tx) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := t.check(ctx, "LockUser"); err != nil {
		return nil, err
	}
	return getLiveUser(t.data, id, "LockUser")
}

func (t *tx) InsertUser(ctx context.Context, u *models.User) error {
	if err := t.check(ctx, "InsertUser"); err != nil {
		return err
	}
	for _, existing := range t.data.users {
		if existing.DeletedAt == nil && existing.Email == u.Email {
			return fmt.Errorf("memstore.InsertUser: %w: users_email_live_idx", store.ErrDuplicate)
		}
	}
	t.data.users[u.ID] = *u
	return nil
}

func (t *tx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	if err := t.check(ctx, "UpdateBalance"); err != nil {
		return err
	}
	u, ok := t.data.users[id]
	if !ok || u.DeletedAt != nil {
		return notFound("UpdateBalance")
	}
	if balance.IsNegative() {
		return fmt.Errorf("memstore.UpdateBalance: balance check violated")
	}
	u.Balance = balance
	t.data.users[id] = u
	return nil
}

func (t *tx) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := t.check(ctx, "SoftDeleteUser"); err != nil {
		return err
	}
	u, ok := t.data.users[id]
	if !ok || u.DeletedAt != nil {
		return notFound("SoftDeleteUser")
	}
	u.DeletedAt = &at
	t.data.users[id] = u
	return nil
}

func (t *tx) InsertTransaction(ctx context.Context, lt *models.Transaction) error {
	if err := t.check(ctx, "InsertTransaction"); err != nil {
		return err
	}
	if _, dup := t.data.transactions[lt.ID]; dup {
		return fmt.Errorf("memstore.InsertTransaction: %w: transactions_pkey", store.ErrDuplicate)
	}
	t.data.transactions[lt.ID] = *lt
	return nil
}

func (t *tx) LockTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if err := t.check(ctx, "LockTransaction"); err != nil {
		return nil, err
	}
	lt, ok := t.data.transactions[id]
	if !ok {
		return nil, notFound("LockTransaction")
	}
	return &lt, nil
}

func (t *tx) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	if err := t.check(ctx, "UpdateTransactionStatus"); err != nil {
		return err
	}
	lt, ok := t.data.transactions[id]
	if !ok || lt.Status != models.TxStatusPending {
		return notFound("UpdateTransactionStatus")
	}
	lt.Status = status
	lt.UpdatedAt = at
	t.data.transactions[id] = lt
	return nil
}

func (t *tx) SumLedger(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if err := t.check(ctx, "SumLedger"); err != nil {
		return decimal.Zero, err
	}
	return sumLedger(t.data, userID), nil
}

func (t *tx) FindEntryByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Entry, error) {
	if err := t.check(ctx, "FindEntryByIdempotencyKey"); err != nil {
		return nil, err
	}
	for _, e := range t.data.entries {
		if e.UserID == userID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			e.Picks = slices.Clone(e.Picks)
			return &e, nil
		}
	}
	return nil, notFound("FindEntryByIdempotencyKey")
}

func (t *tx) InsertEntry(ctx context.Context, e *models.Entry) error {
	if err := t.check(ctx, "InsertEntry"); err != nil {
		return err
	}
	if _, dup := t.data.entries[e.ID]; dup {
		return fmt.Errorf("memstore.InsertEntry: %w: entries_pkey", store.ErrDuplicate)
	}
	stored := *e
	stored.Picks = slices.Clone(e.Picks)
	t.data.entries[e.ID] = stored
	return nil
}

func (t *tx) LockEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	if err := t.check(ctx, "LockEntry"); err != nil {
		return nil, err
	}
	e, ok := t.data.entries[id]
	if !ok {
		return nil, notFound("LockEntry")
	}
	e.Picks = slices.Clone(e.Picks)
	return &e, nil
}

func (t *tx) UpdateEntryStatus(ctx context.Context, id uuid.UUID, status string, settledAt time.Time) error {
	if err := t.check(ctx, "UpdateEntryStatus"); err != nil {
		return err
	}
	e, ok := t.data.entries[id]
	if !ok {
		return notFound("UpdateEntryStatus")
	}
	e.Status = status
	e.SettledAt = &settledAt
	t.data.entries[id] = e
	return nil
}

func (t *tx) InsertRedemption(ctx context.Context, r *models.Redemption) error {
	if err := t.check(ctx, "InsertRedemption"); err != nil {
		return err
	}
	for _, existing := range t.data.redemptions {
		if existing.VoucherCode == r.VoucherCode {
			return fmt.Errorf("memstore.InsertRedemption: %w: redemptions_voucher_code_key", store.ErrDuplicate)
		}
	}
	t.data.redemptions[r.ID] = *r
	return nil
}

func (t *tx) LockContest(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	if err := t.check(ctx, "LockContest"); err != nil {
		return nil, err
	}
	c, ok := t.data.contests[id]
	if !ok {
		return nil, notFound("LockContest")
	}
	return &c, nil
}

func (t *tx) UpdateContestStatus(ctx context.Context, id uuid.UUID, status string) error {
	if err := t.check(ctx, "UpdateContestStatus"); err != nil {
		return err
	}
	c, ok := t.data.contests[id]
	if !ok {
		return notFound("UpdateContestStatus")
	}
	c.Status = status
	t.data.contests[id] = c
	return nil
}
