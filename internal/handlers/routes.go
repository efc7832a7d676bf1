package handlers

import (
	"github.com/go-chi/chi/v5"

	"github.com/pickline/backend/internal/middleware"
)

// API groups the handlers mounted under /api/v1.
type API struct {
	Auth     *AuthHandler
	Ledger   *LedgerHandler
	Contests *ContestHandler
	QR       *QRHandler
	Admin    *AdminHandler
}

// Routes registers the versioned API on r. Everything except login and
// signup requires a bearer token; /admin additionally requires the admin role.
func (a *API) Routes(r chi.Router, verifier middleware.TokenVerifier) {
	// Public endpoints (no auth required)
	r.Post("/auth/login", a.Auth.Login)
	r.Post("/auth/signup", a.Auth.Signup)

	// Protected endpoints (auth required)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(verifier))

		r.Post("/auth/logout", a.Auth.Logout)
		r.Get("/me", a.Ledger.Me)

		r.Get("/users/{userID}/entries", a.Ledger.ListEntries)
		r.Get("/users/{userID}/transactions", a.Ledger.ListTransactions)
		r.Get("/users/{userID}/redemptions", a.Ledger.ListRedemptions)

		r.Get("/contests", a.Contests.ListContests)
		r.Get("/contests/{contestID}", a.Contests.GetContest)
		r.Post("/contests/{contestID}/entries", a.Ledger.CreateEntry)

		r.Post("/wallet/deposit", a.Ledger.Deposit)
		r.Post("/wallet/withdraw", a.Ledger.Withdraw)

		r.Post("/redeem", a.Ledger.Redeem)
		r.Get("/redemptions/{redemptionID}/qr", a.QR.RedemptionQR)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/entries/{entryID}/settle", a.Admin.SettleEntry)
			r.Post("/contests/{contestID}/settle", a.Admin.SettleContest)
			r.Post("/settlements", a.Admin.EnqueueSettlement)
			r.Post("/withdrawals/{transactionID}/resolve", a.Admin.ResolveWithdrawal)
			r.Get("/users/{userID}/reconcile", a.Admin.Reconcile)
			r.Delete("/users/{userID}", a.Admin.DeactivateUser)
		})
	})
}
