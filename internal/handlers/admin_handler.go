package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pickline/backend/internal/models"
	"github.com/pickline/backend/internal/services"
	"github.com/pickline/backend/internal/worker"
)

// SettleRequest carries the actual stat value per player.
type SettleRequest struct {
	Outcome models.Outcome `json:"outcome" validate:"required,min=1" swaggertype:"object,string"`
}

// ResolveWithdrawalRequest reports the payout rail's answer.
type ResolveWithdrawalRequest struct {
	Succeeded *bool `json:"succeeded" validate:"required"`
}

// SettlementEnqueuer accepts settlement jobs for the background worker.
type SettlementEnqueuer interface {
	Enqueue(ctx context.Context, job worker.SettlementJob) error
}

type AdminHandler struct {
	ledger    *services.LedgerService
	queue     SettlementEnqueuer
	validator *services.ValidationHelper
	logger    *slog.Logger
}

// NewAdminHandler builds the admin endpoints. queue may be nil when Redis is
// not configured; enqueueing then answers 503.
func NewAdminHandler(ledger *services.LedgerService, queue SettlementEnqueuer, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		ledger:    ledger,
		queue:     queue,
		validator: services.NewValidationHelper(),
		logger:    logger.With(slog.String("component", "admin_handler")),
	}
}

// SettleEntry settles one entry
// @Summary Settle entry
// @Description Resolves an ACTIVE entry against the outcome. Ties void the entry and refund the fee.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param entryID path string true "Entry ID"
// @Param request body SettleRequest true "Outcome"
// @Success 200 {object} models.Entry
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/entries/{entryID}/settle [post]
func (h *AdminHandler) SettleEntry(w http.ResponseWriter, r *http.Request) {
	entryID, ok := pathUUID(w, r, "entryID")
	if !ok {
		return
	}
	req, ok := h.settleRequest(w, r)
	if !ok {
		return
	}

	entry, err := h.ledger.SettleEntry(r.Context(), entryID, req.Outcome)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// SettleContest settles every active entry of a contest
// @Summary Settle contest
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param contestID path string true "Contest ID"
// @Param request body SettleRequest true "Outcome"
// @Success 200 {object} models.SettlementSummary
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/contests/{contestID}/settle [post]
func (h *AdminHandler) SettleContest(w http.ResponseWriter, r *http.Request) {
	contestID, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}
	req, ok := h.settleRequest(w, r)
	if !ok {
		return
	}

	summary, err := h.ledger.SettleContest(r.Context(), contestID, req.Outcome)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AdminHandler) settleRequest(w http.ResponseWriter, r *http.Request) (SettleRequest, bool) {
	var req SettleRequest
	if !decodeJSON(w, r, &req) {
		return req, false
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return req, false
	}
	return req, true
}

// EnqueueSettlement queues a settlement job for the worker
// @Summary Queue settlement
// @Description Queues a job carrying either entryId or contestId plus the outcome.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body worker.SettlementJob true "Settlement job"
// @Success 202 {object} object{status=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /admin/settlements [post]
func (h *AdminHandler) EnqueueSettlement(w http.ResponseWriter, r *http.Request) {
	var job worker.SettlementJob
	if !decodeJSON(w, r, &job) {
		return
	}
	if err := job.Validate(); err != nil {
		services.SendServiceError(w, err)
		return
	}
	if h.queue == nil {
		services.SendErrorResponse(w, "Settlement queue unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		if errors.Is(err, services.ErrValidation) {
			services.SendServiceError(w, err)
			return
		}
		h.logger.Error("failed to enqueue settlement", slog.String("error", err.Error()))
		services.SendErrorResponse(w, "Settlement queue unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// ResolveWithdrawal completes or fails a pending withdrawal
// @Summary Resolve withdrawal
// @Description A failed payout marks the withdrawal FAILED and credits the amount back.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transactionID path string true "Withdrawal transaction ID"
// @Param request body ResolveWithdrawalRequest true "Payout result"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/withdrawals/{transactionID}/resolve [post]
func (h *AdminHandler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathUUID(w, r, "transactionID")
	if !ok {
		return
	}

	var req ResolveWithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := h.ledger.ResolveWithdrawal(r.Context(), txID, *req.Succeeded)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Reconcile compares a user's balance with the ledger sum
// @Summary Reconcile balance
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} models.Reconciliation
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{userID}/reconcile [get]
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	rec, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeactivateUser soft-deletes a user
// @Summary Deactivate user
// @Tags Admin
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{userID} [delete]
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}

	if err := h.ledger.DeactivateUser(r.Context(), userID); err != nil {
		services.SendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
