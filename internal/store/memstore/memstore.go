// Package memstore is an in-memory store.Store for tests. A single mutex
// serialises transactions, standing in for the per-user row locks, and each
// transaction works on a copy of the data that is swapped in on commit, so a
// failing callback leaves nothing behind.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store"
)

type data struct {
	users        map[uuid.UUID]models.User
	contests     map[uuid.UUID]models.Contest
	players      map[uuid.UUID]models.Player
	entries      map[uuid.UUID]models.Entry
	transactions map[uuid.UUID]models.Transaction
	redemptions  map[uuid.UUID]models.Redemption
}

func newData() *data {
	return &data{
		users:        map[uuid.UUID]models.User{},
		contests:     map[uuid.UUID]models.Contest{},
		players:      map[uuid.UUID]models.Player{},
		entries:      map[uuid.UUID]models.Entry{},
		transactions: map[uuid.UUID]models.Transaction{},
		redemptions:  map[uuid.UUID]models.Redemption{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.contests {
		c.contests[k] = v
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.entries {
		v.Picks = slices.Clone(v.Picks)
		c.entries[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.redemptions {
		c.redemptions[k] = v
	}
	return c
}

type Store struct {
	mu     sync.Mutex
	data   *data
	faults map[string]error
	txs    int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: newData(), faults: map[string]error{}}
}

// FailOn makes every later call of the named Tx method return err, for
// example FailOn("InsertTransaction", errors.New("disk full")).
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

// ClearFaults removes every injected failure.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]error{}
}

// Commits reports how many transactions committed.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore: begin: %w", err)
	}

	work := s.data.clone()
	if err := fn(&tx{data: work, faults: s.faults}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memstore: commit: %w", err)
	}
	s.data = work
	s.txs++
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Seed helpers write directly, outside any transaction.

func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *Store) PutContest(c models.Contest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := c.Players
	c.Players = nil
	s.data.contests[c.ID] = c
	for _, p := range players {
		p.ContestID = c.ID
		s.data.players[p.ID] = p
	}
}

func (s *Store) PutTransaction(t models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.transactions[t.ID] = t
}

func notFound(op string) error {
	return fmt.Errorf("memstore.%s: %w", op, store.ErrNotFound)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return getLiveUser(s.data, id, "GetUser")
}

func getLiveUser(d *data, id uuid.UUID, op string) (*models.User, error) {
	u, ok := d.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, notFound(op)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("GetUserByEmail")
}

func (s *Store) ListContests(ctx context.Context, status string) ([]models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	contests := []models.Contest{}
	for _, c := range s.data.contests {
		if status == "" || c.Status == status {
			contests = append(contests, c)
		}
	}
	slices.SortFunc(contests, func(a, b models.Contest) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return contests, nil
}

func (s *Store) GetContest(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.contests[id]
	if !ok {
		return nil, notFound("GetContest")
	}
	return &c, nil
}

func (s *Store) ListPlayers(ctx context.Context, contestID uuid.UUID) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	players := []models.Player{}
	for _, p := range s.data.players {
		if p.ContestID == contestID {
			players = append(players, p)
		}
	}
	slices.SortFunc(players, func(a, b models.Player) int {
		return strings.Compare(a.Name, b.Name)
	})
	return players, nil
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.entries[id]
	if !ok {
		return nil, notFound("GetEntry")
	}
	e.Picks = slices.Clone(e.Picks)
	return &e, nil
}

// newestFirst orders by creation time then id, both descending.
func newestFirst(aAt, bAt time.Time, aID, bID uuid.UUID) int {
	if c := bAt.Compare(aAt); c != 0 {
		return c
	}
	return strings.Compare(bID.String(), aID.String())
}

func paginate[T any](items []T, page models.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return []T{}
	}
	end := min(page.Offset+page.Limit, len(items))
	return items[page.Offset:end]
}

func (s *Store) ListEntries(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := []models.Entry{}
	for _, e := range s.data.entries {
		if e.UserID == userID {
			e.Picks = slices.Clone(e.Picks)
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b models.Entry) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return paginate(entries, page), nil
}

func (s *Store) ListActiveEntryIDs(ctx context.Context, contestID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []models.Entry
	for _, e := range s.data.entries {
		if e.ContestID == contestID && e.Status == models.EntryStatusActive {
			active = append(active, e)
		}
	}
	slices.SortFunc(active, func(a, b models.Entry) int {
		return -newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	ids := make([]uuid.UUID, 0, len(active))
	for _, e := range active {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.data.transactions[id]
	if !ok {
		return nil, notFound("GetTransaction")
	}
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listTransactions(s.data, userID, page), nil
}

func listTransactions(d *data, userID uuid.UUID, page models.Page) []models.Transaction {
	txs := []models.Transaction{}
	for _, t := range d.transactions {
		if t.UserID == userID {
			txs = append(txs, t)
		}
	}
	slices.SortFunc(txs, func(a, b models.Transaction) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return paginate(txs, page)
}

func (s *Store) SumLedger(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumLedger(s.data, userID), nil
}

func sumLedger(d *data, userID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range d.transactions {
		if t.UserID == userID && t.CountsTowardBalance() {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

func (s *Store) GetRedemption(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.redemptions[id]
	if !ok {
		return nil, notFound("GetRedemption")
	}
	return &r, nil
}

func (s *Store) ListRedemptions(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Redemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := []models.Redemption{}
	for _, r := range s.data.redemptions {
		if r.UserID == userID {
			rs = append(rs, r)
		}
	}
	slices.SortFunc(rs, func(a, b models.Redemption) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return paginate(rs, page), nil
}
