package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/services"
)

// IdempotencyKeyHeader lets clients retry entry submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// CreateEntryRequest is the body of POST /contests/{contestID}/entries.
type CreateEntryRequest struct {
	Picks    []models.Pick   `json:"picks"`
	EntryFee decimal.Decimal `json:"entryFee" swaggertype:"string" example:"20.00"`
}

// WalletRequest is the body of the deposit and withdraw endpoints.
type WalletRequest struct {
	UserID *uuid.UUID      `json:"userId,omitempty"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"25.00"`
}

// RedeemRequest is the body of POST /redeem.
type RedeemRequest struct {
	UserID     *uuid.UUID      `json:"userId,omitempty"`
	PrizeID    string          `json:"prizeId,omitempty" validate:"omitempty,max=64" example:"headphones-01"`
	PrizeTitle string          `json:"prizeTitle" validate:"required,max=128" example:"Wireless Headphones"`
	Cost       decimal.Decimal `json:"cost" swaggertype:"string" example:"2500.00"`
}

type LedgerHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
	logger    *slog.Logger
}

func NewLedgerHandler(ledger *services.LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
		logger:    logger.With(slog.String("component", "ledger_handler")),
	}
}

// Me returns the authenticated user
// @Summary Current user
// @Description Returns the profile and balance of the token subject. A userId query parameter must match the token.
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Must equal the authenticated user"
// @Success 200 {object} models.User
// @Failure 403 {object} services.ErrorResponse
// @Router /me [get]
func (h *LedgerHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if raw := r.URL.Query().Get("userId"); raw != "" {
		claimed, err := uuid.Parse(raw)
		if err != nil {
			services.SendErrorResponse(w, "Invalid userId", http.StatusBadRequest, nil)
			return
		}
		if !sameUser(w, userID, &claimed) {
			return
		}
	}

	user, err := h.ledger.GetUser(r.Context(), userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListEntries lists a user's entries, newest first
// @Summary List entries
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Entry
// @Failure 403 {object} services.ErrorResponse
// @Router /users/{userID}/entries [get]
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerOrAdmin(w, r)
	if !ok {
		return
	}
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	entries, err := h.ledger.ListEntries(r.Context(), userID, page)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ListTransactions lists a user's ledger rows, newest first
// @Summary List transactions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.Transaction
// @Failure 403 {object} services.ErrorResponse
// @Router /users/{userID}/transactions [get]
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerOrAdmin(w, r)
	if !ok {
		return
	}
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	txs, err := h.ledger.ListTransactions(r.Context(), userID, page)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// ListRedemptions lists a user's prize redemptions, newest first
// @Summary List redemptions
// @Tags Rewards
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {array} models.Redemption
// @Failure 403 {object} services.ErrorResponse
// @Router /users/{userID}/redemptions [get]
func (h *LedgerHandler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerOrAdmin(w, r)
	if !ok {
		return
	}
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	redemptions, err := h.ledger.ListRedemptions(r.Context(), userID, page)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redemptions)
}

// CreateEntry submits two picks and debits the entry fee
// @Summary Create entry
// @Description Debits the entry fee and records the picks atomically. Replaying an Idempotency-Key returns the original entry with 200.
// @Tags Entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param contestID path string true "Contest ID"
// @Param Idempotency-Key header string false "Client retry key"
// @Param request body CreateEntryRequest true "Picks and fee"
// @Success 201 {object} models.Entry
// @Success 200 {object} models.Entry
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /contests/{contestID}/entries [post]
func (h *LedgerHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	var req CreateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, created, err := h.ledger.CreateEntry(r.Context(), userID, contestID, req.Picks, req.EntryFee, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, entry)
}

// Deposit credits the wallet
// @Summary Deposit funds
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body WalletRequest true "Amount"
// @Success 200 {object} services.BalanceChange
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /wallet/deposit [post]
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.walletRequest(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Withdraw debits the wallet and queues a payout
// @Summary Withdraw funds
// @Description Debits the balance immediately and records a PENDING withdrawal until the payout is resolved.
// @Tags Wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body WalletRequest true "Amount"
// @Success 202 {object} services.BalanceChange
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Router /wallet/withdraw [post]
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := h.walletRequest(w, r)
	if !ok {
		return
	}

	result, err := h.ledger.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (h *LedgerHandler) walletRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, WalletRequest, bool) {
	var req WalletRequest
	userID, ok := currentUser(w, r)
	if !ok {
		return uuid.Nil, req, false
	}
	if !decodeJSON(w, r, &req) {
		return uuid.Nil, req, false
	}
	if !sameUser(w, userID, req.UserID) {
		return uuid.Nil, req, false
	}
	return userID, req, true
}

// Redeem spends balance on a prize
// @Summary Redeem prize
// @Tags Rewards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RedeemRequest true "Prize and cost"
// @Success 200 {object} services.RedeemResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Router /redeem [post]
func (h *LedgerHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req RedeemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !sameUser(w, userID, req.UserID) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.ledger.Redeem(r.Context(), userID, req.PrizeID, req.PrizeTitle, req.Cost)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	h.logger.Info("prize redeemed",
		slog.String("user_id", userID.String()),
		slog.String("redemption_id", result.Redemption.ID.String()),
	)
	writeJSON(w, http.StatusOK, result)
}
