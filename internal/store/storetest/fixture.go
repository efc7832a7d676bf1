// Package storetest seeds a memstore with a small demo catalog: two
// contests with four players each and three users whose balances are backed
// by matching deposit rows.
package storetest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/store/memstore"
)

var seededAt = time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)

type Demo struct {
	Store *memstore.Store

	Alice models.User // 100.00
	Bob   models.User // 2000.00
	Admin models.User

	Contest models.Contest // OPEN, 3x payout, fees 1.00 to 500.00
	Locked  models.Contest // LOCKED
	Players []models.Player
}

// Player returns the i-th player of the open contest.
func (d *Demo) Player(i int) models.Player {
	return d.Players[i]
}

func NewDemo() *Demo {
	st := memstore.New()
	d := &Demo{Store: st}

	d.Alice = seedUser(st, "alice@example.com", "Alice", models.RoleUser, "100.00")
	d.Bob = seedUser(st, "bob@example.com", "Bob", models.RoleUser, "2000.00")
	d.Admin = seedUser(st, "admin@example.com", "Ops", models.RoleAdmin, "0")

	d.Contest = models.Contest{
		ID:               uuid.New(),
		Title:            "NBA Tuesday Showdown",
		Sport:            "NBA",
		Status:           models.ContestStatusOpen,
		PayoutMultiplier: decimal.RequireFromString("3.00"),
		MinEntryFee:      decimal.RequireFromString("1.00"),
		MaxEntryFee:      decimal.RequireFromString("500.00"),
		StartsAt:         seededAt.Add(48 * time.Hour),
		CreatedAt:        seededAt,
		Players: []models.Player{
			{ID: uuid.New(), Name: "Jayson Tatum", Team: "BOS", Position: "F", StatCategory: "points"},
			{ID: uuid.New(), Name: "Luka Doncic", Team: "LAL", Position: "G", StatCategory: "points"},
			{ID: uuid.New(), Name: "Nikola Jokic", Team: "DEN", Position: "C", StatCategory: "points"},
			{ID: uuid.New(), Name: "Stephen Curry", Team: "GSW", Position: "G", StatCategory: "points"},
		},
	}
	for i := range d.Contest.Players {
		d.Contest.Players[i].ContestID = d.Contest.ID
	}
	d.Players = d.Contest.Players
	st.PutContest(d.Contest)

	d.Locked = models.Contest{
		ID:               uuid.New(),
		Title:            "NFL Sunday Slate",
		Sport:            "NFL",
		Status:           models.ContestStatusLocked,
		PayoutMultiplier: decimal.RequireFromString("2.50"),
		MinEntryFee:      decimal.RequireFromString("5.00"),
		StartsAt:         seededAt.Add(24 * time.Hour),
		CreatedAt:        seededAt,
		Players: []models.Player{
			{ID: uuid.New(), Name: "Josh Allen", Team: "BUF", Position: "QB", StatCategory: "passing_yards"},
			{ID: uuid.New(), Name: "Patrick Mahomes", Team: "KC", Position: "QB", StatCategory: "passing_yards"},
		},
	}
	st.PutContest(d.Locked)

	return d
}

func seedUser(st *memstore.Store, email, name, role, balance string) models.User {
	u := models.User{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: "unused$unused",
		Role:         role,
		Balance:      decimal.RequireFromString(balance),
		CreatedAt:    seededAt,
		UpdatedAt:    seededAt,
	}
	st.PutUser(u)
	if u.Balance.IsPositive() {
		st.PutTransaction(models.Transaction{
			ID:          uuid.New(),
			UserID:      u.ID,
			Type:        models.TxTypeDeposit,
			Amount:      u.Balance,
			Status:      models.TxStatusCompleted,
			Description: "Opening balance",
			CreatedAt:   seededAt,
			UpdatedAt:   seededAt,
		})
	}
	return u
}
