// Package store defines the persistence surface of the ledger. All
// balance-changing work runs inside InTx; the Tx methods that lock rows
// must be called before the rows are read for a decision.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no live row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the read side plus the transaction entry point.
type Store interface {
	// InTx runs fn in one database transaction. The transaction commits
	// only if fn returns nil; any error or context cancellation rolls it back.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	ListContests(ctx context.Context, status string) ([]models.Contest, error)
	GetContest(ctx context.Context, id uuid.UUID) (*models.Contest, error)
	ListPlayers(ctx context.Context, contestID uuid.UUID) ([]models.Player, error)

	GetEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Entry, error)
	ListActiveEntryIDs(ctx context.Context, contestID uuid.UUID) ([]uuid.UUID, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Transaction, error)
	SumLedger(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	GetRedemption(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	ListRedemptions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Redemption, error)

	Ping(ctx context.Context) error
}

// Tx is the write side. Implementations hold row locks until commit.
type Tx interface {
	// LockUser takes the per-user exclusive lock every balance mutation needs.
	LockUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
	SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error

	InsertTransaction(ctx context.Context, t *models.Transaction) error
	LockTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error
	SumLedger(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	FindEntryByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Entry, error)
	InsertEntry(ctx context.Context, e *models.Entry) error
	LockEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error)
	UpdateEntryStatus(ctx context.Context, id uuid.UUID, status string, settledAt time.Time) error

	InsertRedemption(ctx context.Context, r *models.Redemption) error

	// LockContest reads the contest with a shared lock. Entry creation holds
	// it until commit, so a status change waits for in-flight entries.
	LockContest(ctx context.Context, id uuid.UUID) (*models.Contest, error)
	UpdateContestStatus(ctx context.Context, id uuid.UUID, status string) error
}
