package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickline/backend/internal/audit"
	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store/memstore"
	"github.com/pickline/backend/internal/store/storetest"
)

type fakePayouts struct {
	mu    sync.Mutex
	calls []*models.Transaction
	err   error
}

func (f *fakePayouts) PublishWithdrawal(ctx context.Context, tx *models.Transaction, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tx)
	return f.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// steppingClock advances one second per call so ordering by creation time
// is deterministic.
func steppingClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

type ledgerFixture struct {
	svc     *LedgerService
	demo    *storetest.Demo
	payouts *fakePayouts
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	demo := storetest.NewDemo()
	payouts := &fakePayouts{}
	svc := NewLedgerService(demo.Store, payouts, audit.NewAuditLogger(discardLogger()), config.LedgerConfig{
		OperationTimeout: 5 * time.Second,
		MaxDeposit:       dec("10000"),
	}, discardLogger())
	svc.now = steppingClock()
	return &ledgerFixture{svc: svc, demo: demo, payouts: payouts}
}

func (f *ledgerFixture) picks(a, b int) []models.Pick {
	return []models.Pick{
		{PlayerID: f.demo.Player(a).ID, Direction: models.DirectionHigher},
		{PlayerID: f.demo.Player(b).ID, Direction: models.DirectionLower},
	}
}

func (f *ledgerFixture) balance(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	u, err := f.svc.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return Money(u.Balance)
}

func (f *ledgerFixture) assertConsistent(t *testing.T, userID uuid.UUID) {
	t.Helper()
	rec, err := f.svc.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "balance %s != ledger sum %s", rec.Balance, rec.LedgerSum)
}

func TestLedgerService_CreateEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("debits fee and records ledger row", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID

		entry, created, err := f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(0, 1), dec("20.00"), "")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, models.EntryStatusActive, entry.Status)
		assert.Equal(t, "60.00", Money(entry.PotentialPayout))
		assert.Len(t, entry.Picks, 2)
		assert.Equal(t, "80.00", f.balance(t, alice))

		txs, err := f.svc.ListTransactions(ctx, alice, models.Page{})
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, models.TxTypeContestEntry, txs[0].Type)
		assert.Equal(t, "-20.00", Money(txs[0].Amount))
		assert.Equal(t, models.TxStatusCompleted, txs[0].Status)
		require.NotNil(t, txs[0].ReferenceID)
		assert.Equal(t, entry.ID, *txs[0].ReferenceID)

		f.assertConsistent(t, alice)
	})

	t.Run("invalid picks", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := f.demo.Players
		otherContest := f.demo.Locked.Players

		cases := map[string][]models.Pick{
			"none":      nil,
			"one":       {{PlayerID: p[0].ID, Direction: models.DirectionHigher}},
			"three":     {{PlayerID: p[0].ID, Direction: models.DirectionHigher}, {PlayerID: p[1].ID, Direction: models.DirectionLower}, {PlayerID: p[2].ID, Direction: models.DirectionLower}},
			"duplicate": {{PlayerID: p[0].ID, Direction: models.DirectionHigher}, {PlayerID: p[0].ID, Direction: models.DirectionLower}},
			"direction": {{PlayerID: p[0].ID, Direction: "SIDEWAYS"}, {PlayerID: p[1].ID, Direction: models.DirectionLower}},
			"no player": {{Direction: models.DirectionHigher}, {PlayerID: p[1].ID, Direction: models.DirectionLower}},
			"foreign":   {{PlayerID: p[0].ID, Direction: models.DirectionHigher}, {PlayerID: otherContest[0].ID, Direction: models.DirectionLower}},
		}
		for name, picks := range cases {
			t.Run(name, func(t *testing.T) {
				_, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, f.demo.Contest.ID, picks, dec("10"), "")
				assert.ErrorIs(t, err, ErrInvalidPicks)
			})
		}
		assert.Equal(t, "100.00", f.balance(t, f.demo.Alice.ID))
	})

	t.Run("fee validation", func(t *testing.T) {
		f := newLedgerFixture(t)
		for _, fee := range []string{"0", "-5", "10.005", "0.50", "501"} {
			_, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, f.demo.Contest.ID, f.picks(0, 1), dec(fee), "")
			assert.ErrorIs(t, err, ErrValidation, "fee %s", fee)
		}
	})

	t.Run("closed contest", func(t *testing.T) {
		f := newLedgerFixture(t)
		locked := f.demo.Locked
		picks := []models.Pick{
			{PlayerID: locked.Players[0].ID, Direction: models.DirectionHigher},
			{PlayerID: locked.Players[1].ID, Direction: models.DirectionLower},
		}
		_, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, locked.ID, picks, dec("10"), "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, f.demo.Contest.ID, f.picks(0, 1), dec("150"), "")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, "100.00", f.balance(t, f.demo.Alice.ID))
	})

	t.Run("unknown contest and user", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, uuid.New(), f.picks(0, 1), dec("10"), "")
		assert.ErrorIs(t, err, ErrNotFound)

		_, _, err = f.svc.CreateEntry(ctx, uuid.New(), f.demo.Contest.ID, f.picks(0, 1), dec("10"), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("idempotent replay", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID

		first, created, err := f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "key-1")
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "key-1")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "80.00", f.balance(t, alice))

		entries, err := f.svc.ListEntries(ctx, alice, models.Page{})
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		// Keys are scoped per user.
		_, created, err = f.svc.CreateEntry(ctx, f.demo.Bob.ID, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "key-1")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("replay key from another contest conflicts", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID
		locked := f.demo.Locked

		_, _, err := f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "key-1")
		require.NoError(t, err)

		picks := []models.Pick{
			{PlayerID: locked.Players[0].ID, Direction: models.DirectionHigher},
			{PlayerID: locked.Players[1].ID, Direction: models.DirectionLower},
		}
		entry, created, err := f.svc.CreateEntry(ctx, alice, locked.ID, picks, dec("20"), "key-1")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Nil(t, entry)
		assert.False(t, created)
		assert.Equal(t, "80.00", f.balance(t, alice))
	})

	t.Run("failure mid transaction leaves no partial state", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID
		f.demo.Store.FailOn("InsertTransaction", errors.New("disk full"))

		_, _, err := f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "")
		require.Error(t, err)
		assert.True(t, IsInternal(err))

		f.demo.Store.ClearFaults()
		assert.Equal(t, "100.00", f.balance(t, alice))
		entries, err := f.svc.ListEntries(ctx, alice, models.Page{})
		require.NoError(t, err)
		assert.Empty(t, entries)
		f.assertConsistent(t, alice)
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		f := newLedgerFixture(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := f.svc.CreateEntry(cctx, f.demo.Alice.ID, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "")
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, "100.00", f.balance(t, f.demo.Alice.ID))
	})
}

// settlingStore runs onPlayers once, on the first ListPlayers call. CreateEntry
// lists players after its contest existence check and before its transaction.
type settlingStore struct {
	*memstore.Store
	fired     atomic.Bool
	onPlayers func()
}

func (s *settlingStore) ListPlayers(ctx context.Context, contestID uuid.UUID) ([]models.Player, error) {
	if s.onPlayers != nil && s.fired.CompareAndSwap(false, true) {
		s.onPlayers()
	}
	return s.Store.ListPlayers(ctx, contestID)
}

func TestLedgerService_CreateEntry_ContestSettledMidRequest(t *testing.T) {
	ctx := context.Background()
	demo := storetest.NewDemo()
	st := &settlingStore{Store: demo.Store}
	svc := NewLedgerService(st, &fakePayouts{}, audit.NewAuditLogger(discardLogger()), config.LedgerConfig{
		OperationTimeout: 5 * time.Second,
	}, discardLogger())

	p := demo.Players
	outcome := models.Outcome{p[0].ID: dec("30"), p[1].ID: dec("10"), p[2].ID: dec("22"), p[3].ID: dec("12")}
	var summary *models.SettlementSummary
	st.onPlayers = func() {
		var err error
		summary, err = svc.SettleContest(ctx, demo.Contest.ID, outcome)
		require.NoError(t, err)
	}

	picks := []models.Pick{
		{PlayerID: p[0].ID, Direction: models.DirectionHigher},
		{PlayerID: p[1].ID, Direction: models.DirectionLower},
	}
	entry, created, err := svc.CreateEntry(ctx, demo.Alice.ID, demo.Contest.ID, picks, dec("20"), "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, entry)
	assert.False(t, created)

	require.NotNil(t, summary)
	assert.Empty(t, summary.Settled)

	c, err := demo.Store.GetContest(ctx, demo.Contest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContestStatusClosed, c.Status)

	u, err := demo.Store.GetUser(ctx, demo.Alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", Money(u.Balance))
	entries, err := demo.Store.ListEntries(ctx, demo.Alice.ID, models.Page{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedgerService_CreateEntry_Concurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("two entries that together overdraw", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, _, errs[i] = f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(0, 1), dec("60"), "")
			}(i)
		}
		wg.Wait()

		var ok, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientFunds):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, insufficient)
		assert.Equal(t, "40.00", f.balance(t, alice))
		f.assertConsistent(t, alice)
	})

	t.Run("many small entries never overdraw", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID

		var wg sync.WaitGroup
		var succeeded atomic.Int32
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, _, err := f.svc.CreateEntry(ctx, alice, f.demo.Contest.ID, f.picks(2, 3), dec("20"), ""); err == nil {
					succeeded.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), succeeded.Load())
		assert.Equal(t, "0.00", f.balance(t, alice))
		f.assertConsistent(t, alice)
	})
}

func TestLedgerService_ListEntries(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	bob := f.demo.Bob.ID

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		e, _, err := f.svc.CreateEntry(ctx, bob, f.demo.Contest.ID, f.picks(0, 1), dec("10"), "")
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	entries, err := f.svc.ListEntries(ctx, bob, models.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ids[2], entries[0].ID)
	assert.Equal(t, ids[0], entries[2].ID)

	page, err := f.svc.ListEntries(ctx, bob, models.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID)

	_, err = f.svc.ListEntries(ctx, uuid.New(), models.Page{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerService_Deposit(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	alice := f.demo.Alice.ID

	res, err := f.svc.Deposit(ctx, alice, dec("25.50"))
	require.NoError(t, err)
	assert.Equal(t, "125.50", Money(res.Balance))
	assert.Equal(t, models.TxTypeDeposit, res.Transaction.Type)
	assert.Equal(t, models.TxStatusCompleted, res.Transaction.Status)

	for _, amount := range []string{"0", "-1", "1.001", "10000.01"} {
		_, err := f.svc.Deposit(ctx, alice, dec(amount))
		assert.ErrorIs(t, err, ErrValidation, "amount %s", amount)
	}

	_, err = f.svc.Deposit(ctx, uuid.New(), dec("10"))
	assert.ErrorIs(t, err, ErrNotFound)

	f.assertConsistent(t, alice)
}

func TestLedgerService_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("more than balance", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.svc.Withdraw(ctx, f.demo.Alice.ID, dec("100.01"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, "100.00", f.balance(t, f.demo.Alice.ID))
		assert.Empty(t, f.payouts.calls)
	})

	t.Run("debits immediately and publishes payout", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID

		res, err := f.svc.Withdraw(ctx, alice, dec("40"))
		require.NoError(t, err)
		assert.Equal(t, "60.00", Money(res.Balance))
		assert.Equal(t, models.TxStatusPending, res.Transaction.Status)
		assert.Equal(t, "-40.00", Money(res.Transaction.Amount))
		require.Len(t, f.payouts.calls, 1)
		assert.Equal(t, res.Transaction.ID, f.payouts.calls[0].ID)

		f.assertConsistent(t, alice)
	})

	t.Run("publish failure keeps the withdrawal", func(t *testing.T) {
		f := newLedgerFixture(t)
		f.payouts.err = errors.New("redis down")

		res, err := f.svc.Withdraw(ctx, f.demo.Alice.ID, dec("10"))
		require.NoError(t, err)
		assert.Equal(t, "90.00", Money(res.Balance))
	})
}

func TestLedgerService_ResolveWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("success completes the row", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID
		res, err := f.svc.Withdraw(ctx, alice, dec("30"))
		require.NoError(t, err)

		tx, err := f.svc.ResolveWithdrawal(ctx, res.Transaction.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.TxStatusCompleted, tx.Status)
		assert.Equal(t, "70.00", f.balance(t, alice))
		f.assertConsistent(t, alice)

		_, err = f.svc.ResolveWithdrawal(ctx, res.Transaction.ID, false)
		assert.ErrorIs(t, err, ErrAlreadySettled)
		assert.Equal(t, "70.00", f.balance(t, alice))
	})

	t.Run("failure restores the balance", func(t *testing.T) {
		f := newLedgerFixture(t)
		alice := f.demo.Alice.ID
		res, err := f.svc.Withdraw(ctx, alice, dec("30"))
		require.NoError(t, err)

		tx, err := f.svc.ResolveWithdrawal(ctx, res.Transaction.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.TxStatusFailed, tx.Status)
		assert.Equal(t, "100.00", f.balance(t, alice))
		f.assertConsistent(t, alice)
	})

	t.Run("not a withdrawal", func(t *testing.T) {
		f := newLedgerFixture(t)
		res, err := f.svc.Deposit(ctx, f.demo.Alice.ID, dec("5"))
		require.NoError(t, err)

		_, err = f.svc.ResolveWithdrawal(ctx, res.Transaction.ID, true)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.svc.ResolveWithdrawal(ctx, uuid.New(), true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLedgerService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("cost above balance", func(t *testing.T) {
		f := newLedgerFixture(t)
		bob := f.demo.Bob.ID

		_, err := f.svc.Redeem(ctx, bob, "jersey", "Team Jersey", dec("2500"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, "2000.00", f.balance(t, bob))

		redemptions, err := f.svc.ListRedemptions(ctx, bob, models.Page{})
		require.NoError(t, err)
		assert.Empty(t, redemptions)
	})

	t.Run("records redemption and ledger row", func(t *testing.T) {
		f := newLedgerFixture(t)
		bob := f.demo.Bob.ID

		res, err := f.svc.Redeem(ctx, bob, "jersey", "Team Jersey", dec("500"))
		require.NoError(t, err)
		assert.Equal(t, "1500.00", Money(res.NewBalance))
		assert.Equal(t, models.RedemptionStatusPending, res.Redemption.Status)
		assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}$`, res.Redemption.VoucherCode)

		txs, err := f.svc.ListTransactions(ctx, bob, models.Page{Limit: 1})
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, models.TxTypeRedemption, txs[0].Type)
		assert.Equal(t, "-500.00", Money(txs[0].Amount))

		got, err := f.svc.GetRedemption(ctx, bob, res.Redemption.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Redemption.VoucherCode, got.VoucherCode)

		_, err = f.svc.GetRedemption(ctx, f.demo.Alice.ID, res.Redemption.ID)
		assert.ErrorIs(t, err, ErrForbidden)

		f.assertConsistent(t, bob)
	})

	t.Run("title required", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.svc.Redeem(ctx, f.demo.Bob.ID, "", "", dec("5"))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestLedgerService_SettleEntry(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ledgerFixture, *models.Entry) {
		f := newLedgerFixture(t)
		// Alice: player 0 HIGHER, player 1 LOWER.
		e, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, f.demo.Contest.ID, f.picks(0, 1), dec("20"), "")
		require.NoError(t, err)
		return f, e
	}

	t.Run("won credits payout", func(t *testing.T) {
		f, e := setup(t)
		outcome := models.Outcome{f.demo.Player(0).ID: dec("31"), f.demo.Player(1).ID: dec("18")}

		settled, err := f.svc.SettleEntry(ctx, e.ID, outcome)
		require.NoError(t, err)
		assert.Equal(t, models.EntryStatusWon, settled.Status)
		assert.NotNil(t, settled.SettledAt)
		assert.Equal(t, "140.00", f.balance(t, f.demo.Alice.ID))
		f.assertConsistent(t, f.demo.Alice.ID)
	})

	t.Run("lost moves no money", func(t *testing.T) {
		f, e := setup(t)
		outcome := models.Outcome{f.demo.Player(0).ID: dec("12"), f.demo.Player(1).ID: dec("40")}

		settled, err := f.svc.SettleEntry(ctx, e.ID, outcome)
		require.NoError(t, err)
		assert.Equal(t, models.EntryStatusLost, settled.Status)
		assert.Equal(t, "80.00", f.balance(t, f.demo.Alice.ID))
	})

	t.Run("tie voids and refunds", func(t *testing.T) {
		f, e := setup(t)
		outcome := models.Outcome{f.demo.Player(0).ID: dec("25.0"), f.demo.Player(1).ID: dec("25")}

		settled, err := f.svc.SettleEntry(ctx, e.ID, outcome)
		require.NoError(t, err)
		assert.Equal(t, models.EntryStatusVoid, settled.Status)
		assert.Equal(t, "100.00", f.balance(t, f.demo.Alice.ID))

		txs, err := f.svc.ListTransactions(ctx, f.demo.Alice.ID, models.Page{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, models.TxTypeRefund, txs[0].Type)
		assert.Equal(t, "20.00", Money(txs[0].Amount))
		f.assertConsistent(t, f.demo.Alice.ID)
	})

	t.Run("settling twice changes balance once", func(t *testing.T) {
		f, e := setup(t)
		outcome := models.Outcome{f.demo.Player(0).ID: dec("31"), f.demo.Player(1).ID: dec("18")}

		_, err := f.svc.SettleEntry(ctx, e.ID, outcome)
		require.NoError(t, err)
		_, err = f.svc.SettleEntry(ctx, e.ID, outcome)
		assert.ErrorIs(t, err, ErrAlreadySettled)
		assert.Equal(t, "140.00", f.balance(t, f.demo.Alice.ID))
	})

	t.Run("concurrent settlement pays once", func(t *testing.T) {
		f, e := setup(t)
		outcome := models.Outcome{f.demo.Player(0).ID: dec("31"), f.demo.Player(1).ID: dec("18")}

		var wg sync.WaitGroup
		var already atomic.Int32
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.svc.SettleEntry(ctx, e.ID, outcome); errors.Is(err, ErrAlreadySettled) {
					already.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(3), already.Load())
		assert.Equal(t, "140.00", f.balance(t, f.demo.Alice.ID))
	})

	t.Run("outcome must cover both players", func(t *testing.T) {
		f, e := setup(t)
		_, err := f.svc.SettleEntry(ctx, e.ID, models.Outcome{f.demo.Player(0).ID: dec("1")})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown entry", func(t *testing.T) {
		f, _ := setup(t)
		_, err := f.svc.SettleEntry(ctx, uuid.New(), models.Outcome{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLedgerService_SettleContest(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	contest := f.demo.Contest.ID
	p := f.demo.Players

	// Alice wins, Bob loses, a second Bob entry ties.
	_, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, contest, f.picks(0, 1), dec("10"), "")
	require.NoError(t, err)
	_, _, err = f.svc.CreateEntry(ctx, f.demo.Bob.ID, contest, f.picks(1, 0), dec("10"), "")
	require.NoError(t, err)
	_, _, err = f.svc.CreateEntry(ctx, f.demo.Bob.ID, contest, f.picks(2, 3), dec("10"), "")
	require.NoError(t, err)

	outcome := models.Outcome{p[0].ID: dec("30"), p[1].ID: dec("10"), p[2].ID: dec("22"), p[3].ID: dec("22")}

	summary, err := f.svc.SettleContest(ctx, contest, outcome)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Settled[models.EntryStatusWon])
	assert.Equal(t, 1, summary.Settled[models.EntryStatusLost])
	assert.Equal(t, 1, summary.Settled[models.EntryStatusVoid])
	assert.Equal(t, 0, summary.Skipped)

	assert.Equal(t, "120.00", f.balance(t, f.demo.Alice.ID))
	assert.Equal(t, "1990.00", f.balance(t, f.demo.Bob.ID))

	c, err := f.demo.Store.GetContest(ctx, contest)
	require.NoError(t, err)
	assert.Equal(t, models.ContestStatusClosed, c.Status)

	_, _, err = f.svc.CreateEntry(ctx, f.demo.Alice.ID, contest, f.picks(0, 1), dec("10"), "")
	assert.ErrorIs(t, err, ErrValidation)

	again, err := f.svc.SettleContest(ctx, contest, outcome)
	require.NoError(t, err)
	assert.Empty(t, again.Settled)

	_, err = f.svc.SettleContest(ctx, uuid.New(), outcome)
	assert.ErrorIs(t, err, ErrNotFound)

	f.assertConsistent(t, f.demo.Alice.ID)
	f.assertConsistent(t, f.demo.Bob.ID)
}

func TestLedgerService_SettleContest_IncompleteOutcome(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	contest := f.demo.Contest.ID
	p := f.demo.Players

	first, _, err := f.svc.CreateEntry(ctx, f.demo.Alice.ID, contest, f.picks(0, 1), dec("10"), "")
	require.NoError(t, err)
	second, _, err := f.svc.CreateEntry(ctx, f.demo.Bob.ID, contest, f.picks(2, 3), dec("10"), "")
	require.NoError(t, err)

	// Player 3 has no result.
	outcome := models.Outcome{p[0].ID: dec("30"), p[1].ID: dec("10"), p[2].ID: dec("22")}
	summary, err := f.svc.SettleContest(ctx, contest, outcome)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, p[3].ID.String())
	assert.Nil(t, summary)

	c, err := f.demo.Store.GetContest(ctx, contest)
	require.NoError(t, err)
	assert.Equal(t, models.ContestStatusOpen, c.Status)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		e, err := f.demo.Store.GetEntry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.EntryStatusActive, e.Status)
	}
	assert.Equal(t, "90.00", f.balance(t, f.demo.Alice.ID))
}

func TestLedgerService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	bob := f.demo.Bob.ID

	_, err := f.svc.Deposit(ctx, bob, dec("12.34"))
	require.NoError(t, err)
	e, _, err := f.svc.CreateEntry(ctx, bob, f.demo.Contest.ID, f.picks(0, 1), dec("100"), "")
	require.NoError(t, err)
	w, err := f.svc.Withdraw(ctx, bob, dec("50"))
	require.NoError(t, err)
	_, err = f.svc.Redeem(ctx, bob, "", "Cap", dec("20"))
	require.NoError(t, err)
	_, err = f.svc.SettleEntry(ctx, e.ID, models.Outcome{f.demo.Player(0).ID: dec("5"), f.demo.Player(1).ID: dec("1")})
	require.NoError(t, err)
	_, err = f.svc.ResolveWithdrawal(ctx, w.Transaction.ID, false)
	require.NoError(t, err)

	rec, err := f.svc.Reconcile(ctx, bob)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, "2192.34", Money(rec.Balance))
	assert.Equal(t, "2192.34", Money(rec.LedgerSum))
}

func TestLedgerService_DeactivateUser(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	alice := f.demo.Alice.ID

	require.NoError(t, f.svc.DeactivateUser(ctx, alice))

	_, err := f.svc.GetUser(ctx, alice)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Deposit(ctx, alice, dec("1"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeactivateUser(ctx, alice), ErrNotFound)
}
