package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/audit"
	"github.com/pickline/backend/internal/config"
	"github.com/pickline/backend/internal/metrics"
	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store"
)

const maxIdempotencyKeyLength = 255

// LedgerService owns every balance mutation. Each mutating operation runs in
// one store transaction that starts by locking the user row; entry and
// transaction rows are locked only after that, so lock order is always user
// first.
type LedgerService struct {
	store      store.Store
	payouts    PayoutPublisher
	audit      *audit.AuditLogger
	logger     *slog.Logger
	timeout    time.Duration
	maxDeposit decimal.Decimal
	now        func() time.Time
	newID      func() uuid.UUID
}

func NewLedgerService(st store.Store, payouts PayoutPublisher, auditLogger *audit.AuditLogger, cfg config.LedgerConfig, logger *slog.Logger) *LedgerService {
	timeout := cfg.OperationTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LedgerService{
		store:      st,
		payouts:    payouts,
		audit:      auditLogger,
		logger:     logger.With(slog.String("component", "ledger")),
		timeout:    timeout,
		maxDeposit: cfg.MaxDeposit,
		now:        time.Now,
		newID:      uuid.New,
	}
}

// BalanceChange is the result of a deposit or withdrawal.
type BalanceChange struct {
	Balance     decimal.Decimal     `json:"balance" swaggertype:"string" example:"80.00"`
	Transaction *models.Transaction `json:"transaction"`
}

// RedeemResult is the result of a prize redemption.
type RedeemResult struct {
	NewBalance decimal.Decimal    `json:"newBalance" swaggertype:"string" example:"1500.00"`
	Redemption *models.Redemption `json:"redemption"`
}

// run bounds fn by the operation timeout and records metrics.
func (s *LedgerService) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	timer := prometheus.NewTimer(metrics.LedgerOperationDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	err := ctxErr(ctx, fn(ctx))

	result := "OK"
	if err != nil {
		_, result = ErrorStatus(err)
		if IsInternal(err) {
			s.logger.Error("ledger operation failed", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
	metrics.LedgerOperationsTotal.WithLabelValues(op, result).Inc()
	return err
}

func (s *LedgerService) newTransaction(userID uuid.UUID, txType string, amount decimal.Decimal, status string, ref *uuid.UUID, description string) *models.Transaction {
	now := s.now().UTC()
	return &models.Transaction{
		ID:          s.newID(),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Status:      status,
		ReferenceID: ref,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// lockUser takes the per-user lock inside tx.
func lockUser(ctx context.Context, tx store.Tx, userID uuid.UUID) (*models.User, error) {
	user, err := tx.LockUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user "+userID.String())
	}
	return user, nil
}

// applyDelta moves the locked user's balance and records the ledger row in
// the same transaction.
func applyDelta(ctx context.Context, tx store.Tx, user *models.User, lt *models.Transaction) error {
	newBalance := user.Balance.Add(lt.Amount)
	if newBalance.IsNegative() {
		return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, Money(user.Balance), Money(lt.Amount.Neg()))
	}
	if err := tx.UpdateBalance(ctx, user.ID, newBalance); err != nil {
		return err
	}
	if err := tx.InsertTransaction(ctx, lt); err != nil {
		return err
	}
	user.Balance = newBalance
	return nil
}

// GetUser returns the profile and current balance.
func (s *LedgerService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user *models.User
	err := s.run(ctx, "get_user", func(ctx context.Context) error {
		u, err := s.store.GetUser(ctx, userID)
		if err != nil {
			return notFound(err, "user "+userID.String())
		}
		user = u
		return nil
	})
	return user, err
}

// CreateEntry debits the entry fee and records the entry with its picks.
// A non-empty idempotencyKey that matches an earlier entry of the same user
// returns that entry with created=false and no second debit.
func (s *LedgerService) CreateEntry(ctx context.Context, userID, contestID uuid.UUID, picks []models.Pick, entryFee decimal.Decimal, idempotencyKey string) (*models.Entry, bool, error) {
	var (
		entry   *models.Entry
		created bool
	)
	err := s.run(ctx, "create_entry", func(ctx context.Context) error {
		if err := validatePicks(picks); err != nil {
			return err
		}
		fee, err := validateAmount("entryFee", entryFee)
		if err != nil {
			return err
		}
		if len(idempotencyKey) > maxIdempotencyKeyLength {
			return fmt.Errorf("%w: idempotency key exceeds %d characters", ErrValidation, maxIdempotencyKeyLength)
		}

		if _, err := s.store.GetContest(ctx, contestID); err != nil {
			return notFound(err, "contest "+contestID.String())
		}
		players, err := s.store.ListPlayers(ctx, contestID)
		if err != nil {
			return err
		}
		if err := picksBelongToContest(picks, players); err != nil {
			return err
		}

		return s.store.InTx(ctx, func(tx store.Tx) error {
			user, err := lockUser(ctx, tx, userID)
			if err != nil {
				return err
			}

			if idempotencyKey != "" {
				existing, err := tx.FindEntryByIdempotencyKey(ctx, userID, idempotencyKey)
				if err == nil {
					if existing.ContestID != contestID {
						return fmt.Errorf("%w: idempotency key already used for contest %s", ErrConflict, existing.ContestID)
					}
					entry = existing
					return nil
				}
				if !errors.Is(err, store.ErrNotFound) {
					return err
				}
			}

			// Status and fee limits are only trusted under the contest lock.
			contest, err := tx.LockContest(ctx, contestID)
			if err != nil {
				return notFound(err, "contest "+contestID.String())
			}
			if !contest.IsOpen() {
				return fmt.Errorf("%w: contest is %s and not accepting entries", ErrValidation, contest.Status)
			}
			if !contest.AcceptsFee(fee) {
				return fmt.Errorf("%w: entry fee must be between %s and %s", ErrValidation, Money(contest.MinEntryFee), Money(contest.MaxEntryFee))
			}
			if user.Balance.LessThan(fee) {
				return fmt.Errorf("%w: balance %s is less than entry fee %s", ErrInsufficientFunds, Money(user.Balance), Money(fee))
			}

			e := &models.Entry{
				ID:              s.newID(),
				UserID:          userID,
				ContestID:       contestID,
				Picks:           append([]models.Pick(nil), picks...),
				EntryFee:        fee,
				PotentialPayout: fee.Mul(contest.PayoutMultiplier).Round(MoneyPlaces),
				Status:          models.EntryStatusActive,
				CreatedAt:       s.now().UTC(),
			}
			if idempotencyKey != "" {
				key := idempotencyKey
				e.IdempotencyKey = &key
			}

			if err := tx.InsertEntry(ctx, e); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					return fmt.Errorf("%w: entry already exists", ErrConflict)
				}
				return err
			}
			lt := s.newTransaction(userID, models.TxTypeContestEntry, fee.Neg(), models.TxStatusCompleted, &e.ID, "Entry: "+contest.Title)
			if err := applyDelta(ctx, tx, user, lt); err != nil {
				return err
			}

			entry, created = e, true
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.audit.LogLedger(audit.EventEntryCreated, userID, entry.ID, entry.EntryFee.Neg(), models.TxStatusCompleted, map[string]string{
			"contest_id": contestID.String(),
		})
	}
	return entry, created, nil
}

func validatePicks(picks []models.Pick) error {
	if len(picks) != models.RequiredPicks {
		return fmt.Errorf("%w: exactly %d picks are required, got %d", ErrInvalidPicks, models.RequiredPicks, len(picks))
	}
	seen := make(map[uuid.UUID]struct{}, len(picks))
	for _, pick := range picks {
		if pick.PlayerID == uuid.Nil {
			return fmt.Errorf("%w: pick is missing a player", ErrInvalidPicks)
		}
		if !pick.Direction.Valid() {
			return fmt.Errorf("%w: direction %q must be HIGHER or LOWER", ErrInvalidPicks, pick.Direction)
		}
		if _, dup := seen[pick.PlayerID]; dup {
			return fmt.Errorf("%w: player %s picked twice", ErrInvalidPicks, pick.PlayerID)
		}
		seen[pick.PlayerID] = struct{}{}
	}
	return nil
}

func picksBelongToContest(picks []models.Pick, players []models.Player) error {
	known := make(map[uuid.UUID]struct{}, len(players))
	for _, p := range players {
		known[p.ID] = struct{}{}
	}
	for _, pick := range picks {
		if _, ok := known[pick.PlayerID]; !ok {
			return fmt.Errorf("%w: player %s is not part of this contest", ErrInvalidPicks, pick.PlayerID)
		}
	}
	return nil
}

// ListEntries returns the user's entries, most recent first.
func (s *LedgerService) ListEntries(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.run(ctx, "list_entries", func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return notFound(err, "user "+userID.String())
		}
		var err error
		entries, err = s.store.ListEntries(ctx, userID, page.Normalize())
		return err
	})
	return entries, err
}

// ListTransactions returns the user's ledger rows, most recent first.
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.run(ctx, "list_transactions", func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return notFound(err, "user "+userID.String())
		}
		var err error
		txs, err = s.store.ListTransactions(ctx, userID, page.Normalize())
		return err
	})
	return txs, err
}

func (s *LedgerService) ListRedemptions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Redemption, error) {
	var redemptions []models.Redemption
	err := s.run(ctx, "list_redemptions", func(ctx context.Context) error {
		if _, err := s.store.GetUser(ctx, userID); err != nil {
			return notFound(err, "user "+userID.String())
		}
		var err error
		redemptions, err = s.store.ListRedemptions(ctx, userID, page.Normalize())
		return err
	})
	return redemptions, err
}

// GetRedemption returns a redemption owned by userID.
func (s *LedgerService) GetRedemption(ctx context.Context, userID, redemptionID uuid.UUID) (*models.Redemption, error) {
	var redemption *models.Redemption
	err := s.run(ctx, "get_redemption", func(ctx context.Context) error {
		r, err := s.store.GetRedemption(ctx, redemptionID)
		if err != nil {
			return notFound(err, "redemption "+redemptionID.String())
		}
		if r.UserID != userID {
			return fmt.Errorf("%w: redemption belongs to another user", ErrForbidden)
		}
		redemption = r
		return nil
	})
	return redemption, err
}

// Deposit credits amount and appends a completed DEPOSIT row.
func (s *LedgerService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*BalanceChange, error) {
	var result *BalanceChange
	err := s.run(ctx, "deposit", func(ctx context.Context) error {
		amount, err := validateAmount("amount", amount)
		if err != nil {
			return err
		}
		if s.maxDeposit.IsPositive() && amount.GreaterThan(s.maxDeposit) {
			return fmt.Errorf("%w: amount must not exceed %s", ErrValidation, Money(s.maxDeposit))
		}

		return s.store.InTx(ctx, func(tx store.Tx) error {
			user, err := lockUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			lt := s.newTransaction(userID, models.TxTypeDeposit, amount, models.TxStatusCompleted, nil, "Deposit")
			if err := applyDelta(ctx, tx, user, lt); err != nil {
				return err
			}
			result = &BalanceChange{Balance: user.Balance, Transaction: lt}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogLedger(audit.EventDeposit, userID, result.Transaction.ID, result.Transaction.Amount, result.Transaction.Status, map[string]string{
		"balance": Money(result.Balance),
	})
	return result, nil
}

// Withdraw debits amount immediately and records a PENDING WITHDRAWAL. The
// payout instruction is published after commit; a publish failure leaves the
// withdrawal pending for an operator to resolve.
func (s *LedgerService) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*BalanceChange, error) {
	var (
		result *BalanceChange
		user   *models.User
	)
	err := s.run(ctx, "withdraw", func(ctx context.Context) error {
		amount, err := validateAmount("amount", amount)
		if err != nil {
			return err
		}

		return s.store.InTx(ctx, func(tx store.Tx) error {
			u, err := lockUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			if u.Balance.LessThan(amount) {
				return fmt.Errorf("%w: balance %s is less than %s", ErrInsufficientFunds, Money(u.Balance), Money(amount))
			}
			lt := s.newTransaction(userID, models.TxTypeWithdrawal, amount.Neg(), models.TxStatusPending, nil, "Withdrawal")
			if err := applyDelta(ctx, tx, u, lt); err != nil {
				return err
			}
			user = u
			result = &BalanceChange{Balance: u.Balance, Transaction: lt}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogLedger(audit.EventWithdrawal, userID, result.Transaction.ID, result.Transaction.Amount, result.Transaction.Status, map[string]string{
		"balance": Money(result.Balance),
	})

	if s.payouts != nil {
		if err := s.payouts.PublishWithdrawal(ctx, result.Transaction, user); err != nil {
			s.logger.Error("failed to publish payout",
				slog.String("transaction_id", result.Transaction.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, nil
}

// ResolveWithdrawal records the payout processor's verdict on a pending
// withdrawal. A failed payout credits the amount back in the same
// transaction that marks the row FAILED.
func (s *LedgerService) ResolveWithdrawal(ctx context.Context, transactionID uuid.UUID, succeeded bool) (*models.Transaction, error) {
	var resolved *models.Transaction
	err := s.run(ctx, "resolve_withdrawal", func(ctx context.Context) error {
		// Unlocked read to find the owner so the user lock is taken first.
		pending, err := s.store.GetTransaction(ctx, transactionID)
		if err != nil {
			return notFound(err, "transaction "+transactionID.String())
		}

		return s.store.InTx(ctx, func(tx store.Tx) error {
			user, err := lockUser(ctx, tx, pending.UserID)
			if err != nil {
				return err
			}
			lt, err := tx.LockTransaction(ctx, transactionID)
			if err != nil {
				return notFound(err, "transaction "+transactionID.String())
			}
			if lt.Type != models.TxTypeWithdrawal {
				return fmt.Errorf("%w: transaction %s is not a withdrawal", ErrValidation, transactionID)
			}
			if lt.Status != models.TxStatusPending {
				return fmt.Errorf("%w: withdrawal is already %s", ErrAlreadySettled, lt.Status)
			}

			now := s.now().UTC()
			status := models.TxStatusCompleted
			if !succeeded {
				status = models.TxStatusFailed
			}
			if err := tx.UpdateTransactionStatus(ctx, lt.ID, status, now); err != nil {
				return err
			}
			if !succeeded {
				if err := tx.UpdateBalance(ctx, user.ID, user.Balance.Sub(lt.Amount)); err != nil {
					return err
				}
			}

			lt.Status = status
			lt.UpdatedAt = now
			resolved = lt
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogLedger(audit.EventWithdrawalResolved, resolved.UserID, resolved.ID, resolved.Amount, resolved.Status, nil)
	return resolved, nil
}

// Redeem debits cost and records the redemption request with its ledger row.
func (s *LedgerService) Redeem(ctx context.Context, userID uuid.UUID, prizeID, prizeTitle string, cost decimal.Decimal) (*RedeemResult, error) {
	var result *RedeemResult
	err := s.run(ctx, "redeem", func(ctx context.Context) error {
		cost, err := validateAmount("cost", cost)
		if err != nil {
			return err
		}
		if prizeTitle == "" {
			return fmt.Errorf("%w: prizeTitle is required", ErrValidation)
		}

		return s.store.InTx(ctx, func(tx store.Tx) error {
			user, err := lockUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			if user.Balance.LessThan(cost) {
				return fmt.Errorf("%w: balance %s is less than cost %s", ErrInsufficientFunds, Money(user.Balance), Money(cost))
			}

			r := &models.Redemption{
				ID:         s.newID(),
				UserID:     userID,
				PrizeID:    prizeID,
				PrizeTitle: prizeTitle,
				Cost:       cost,
				Status:     models.RedemptionStatusPending,
				CreatedAt:  s.now().UTC(),
			}
			r.VoucherCode = NewVoucherCode(r.ID)
			if err := tx.InsertRedemption(ctx, r); err != nil {
				return err
			}
			lt := s.newTransaction(userID, models.TxTypeRedemption, cost.Neg(), models.TxStatusCompleted, &r.ID, "Redeemed: "+prizeTitle)
			if err := applyDelta(ctx, tx, user, lt); err != nil {
				return err
			}

			result = &RedeemResult{NewBalance: user.Balance, Redemption: r}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogLedger(audit.EventRedemption, userID, result.Redemption.ID, result.Redemption.Cost.Neg(), models.TxStatusCompleted, map[string]string{
		"prize_title": prizeTitle,
	})
	return result, nil
}

// SettleEntry resolves an ACTIVE entry against outcome. Settling an entry
// that already left ACTIVE returns ErrAlreadySettled and moves no money.
func (s *LedgerService) SettleEntry(ctx context.Context, entryID uuid.UUID, outcome models.Outcome) (*models.Entry, error) {
	var settled *models.Entry
	err := s.run(ctx, "settle_entry", func(ctx context.Context) error {
		var err error
		settled, err = s.settleEntry(ctx, entryID, outcome)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.EntriesSettledTotal.WithLabelValues(settled.Status).Inc()
	s.audit.LogLedger(audit.EventEntrySettled, settled.UserID, settled.ID, settlementCredit(settled), settled.Status, map[string]string{
		"contest_id": settled.ContestID.String(),
	})
	return settled, nil
}

func (s *LedgerService) settleEntry(ctx context.Context, entryID uuid.UUID, outcome models.Outcome) (*models.Entry, error) {
	// Picks are immutable, so the unlocked copy is enough to validate the
	// outcome and find the owner.
	snapshot, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, notFound(err, "entry "+entryID.String())
	}
	if err := validateOutcome(snapshot, outcome); err != nil {
		return nil, err
	}

	var settled *models.Entry
	err = s.store.InTx(ctx, func(tx store.Tx) error {
		user, err := lockUser(ctx, tx, snapshot.UserID)
		if err != nil {
			return err
		}
		entry, err := tx.LockEntry(ctx, entryID)
		if err != nil {
			return notFound(err, "entry "+entryID.String())
		}
		if entry.IsSettled() {
			return fmt.Errorf("%w: entry is %s", ErrAlreadySettled, entry.Status)
		}

		status, err := EvaluateEntry(entry, outcome)
		if err != nil {
			return err
		}

		switch status {
		case models.EntryStatusVoid:
			lt := s.newTransaction(user.ID, models.TxTypeRefund, entry.EntryFee, models.TxStatusCompleted, &entry.ID, "Refund: tied result")
			if err := applyDelta(ctx, tx, user, lt); err != nil {
				return err
			}
		case models.EntryStatusWon:
			lt := s.newTransaction(user.ID, models.TxTypeContestWin, entry.PotentialPayout, models.TxStatusCompleted, &entry.ID, "Contest win")
			if err := applyDelta(ctx, tx, user, lt); err != nil {
				return err
			}
		}

		settledAt := s.now().UTC()
		if err := tx.UpdateEntryStatus(ctx, entry.ID, status, settledAt); err != nil {
			return err
		}
		entry.Status = status
		entry.SettledAt = &settledAt
		settled = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func settlementCredit(e *models.Entry) decimal.Decimal {
	switch e.Status {
	case models.EntryStatusWon:
		return e.PotentialPayout
	case models.EntryStatusVoid:
		return e.EntryFee
	}
	return decimal.Zero
}

// SettleContest locks the contest against new entries, settles each ACTIVE
// entry in its own transaction and closes the contest. The outcome must cover
// every player of the contest. Entries settled concurrently by someone else
// are counted as skipped.
func (s *LedgerService) SettleContest(ctx context.Context, contestID uuid.UUID, outcome models.Outcome) (*models.SettlementSummary, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, ctxErr(ctx, notFound(err, "contest "+contestID.String()))
	}
	if len(outcome) == 0 {
		return nil, fmt.Errorf("%w: outcome is required", ErrValidation)
	}
	players, err := s.store.ListPlayers(ctx, contestID)
	if err != nil {
		return nil, ctxErr(ctx, err)
	}
	if err := outcomeCoversPlayers(outcome, players); err != nil {
		return nil, err
	}

	if err := s.setContestStatus(ctx, contest.ID, models.ContestStatusLocked); err != nil {
		return nil, err
	}

	ids, err := s.store.ListActiveEntryIDs(ctx, contestID)
	if err != nil {
		return nil, ctxErr(ctx, err)
	}

	summary := &models.SettlementSummary{
		ContestID: contestID,
		Settled:   map[string]int{},
	}
	for _, id := range ids {
		entry, err := s.SettleEntry(ctx, id, outcome)
		if errors.Is(err, ErrAlreadySettled) {
			summary.Skipped++
			continue
		}
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("skipping entry of inactive user", slog.String("entry_id", id.String()))
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("settle entry %s: %w", id, err)
		}
		summary.Settled[entry.Status]++
	}

	if err := s.setContestStatus(ctx, contest.ID, models.ContestStatusClosed); err != nil {
		return summary, err
	}

	s.logger.Info("contest settled",
		slog.String("contest_id", contestID.String()),
		slog.Int("entries", len(ids)),
		slog.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func outcomeCoversPlayers(outcome models.Outcome, players []models.Player) error {
	var missing []string
	for _, p := range players {
		if _, ok := outcome[p.ID]; !ok {
			missing = append(missing, p.ID.String())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: outcome is missing players %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func (s *LedgerService) setContestStatus(ctx context.Context, contestID uuid.UUID, status string) error {
	return s.run(ctx, "set_contest_status", func(ctx context.Context) error {
		return s.store.InTx(ctx, func(tx store.Tx) error {
			return notFound(tx.UpdateContestStatus(ctx, contestID, status), "contest "+contestID.String())
		})
	})
}

// Reconcile compares the stored balance with the ledger sum while holding
// the user lock.
func (s *LedgerService) Reconcile(ctx context.Context, userID uuid.UUID) (*models.Reconciliation, error) {
	var rec *models.Reconciliation
	err := s.run(ctx, "reconcile", func(ctx context.Context) error {
		return s.store.InTx(ctx, func(tx store.Tx) error {
			user, err := lockUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			sum, err := tx.SumLedger(ctx, userID)
			if err != nil {
				return err
			}
			rec = &models.Reconciliation{
				UserID:     userID,
				Balance:    user.Balance,
				LedgerSum:  sum,
				Consistent: user.Balance.Equal(sum),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if !rec.Consistent {
		s.audit.LogLedger(audit.EventReconcileMismatch, userID, uuid.Nil, rec.Balance.Sub(rec.LedgerSum), "MISMATCH", map[string]string{
			"balance":    Money(rec.Balance),
			"ledger_sum": Money(rec.LedgerSum),
		})
	}
	return rec, nil
}

// DeactivateUser soft-deletes the user; later lookups report NotFound.
func (s *LedgerService) DeactivateUser(ctx context.Context, userID uuid.UUID) error {
	err := s.run(ctx, "deactivate_user", func(ctx context.Context) error {
		return s.store.InTx(ctx, func(tx store.Tx) error {
			if _, err := lockUser(ctx, tx, userID); err != nil {
				return err
			}
			return tx.SoftDeleteUser(ctx, userID, s.now().UTC())
		})
	})
	if err != nil {
		return err
	}
	s.audit.LogOperation(audit.EventUserDeactivated, userID, nil)
	return nil
}
