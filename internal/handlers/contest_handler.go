package handlers

import (
	"net/http"

	"github.com/pickline/backend/internal/services"
)

type ContestHandler struct {
	service *services.ContestService
}

func NewContestHandler(service *services.ContestService) *ContestHandler {
	return &ContestHandler{service: service}
}

// ListContests lists contests
// @Summary List contests
// @Tags Contests
// @Produce json
// @Security BearerAuth
// @Param status query string false "OPEN, LOCKED or CLOSED"
// @Success 200 {array} models.Contest
// @Failure 400 {object} services.ErrorResponse
// @Router /contests [get]
func (h *ContestHandler) ListContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.service.ListContests(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contests)
}

// GetContest returns one contest with its players
// @Summary Get contest
// @Tags Contests
// @Produce json
// @Security BearerAuth
// @Param contestID path string true "Contest ID"
// @Success 200 {object} models.Contest
// @Failure 404 {object} services.ErrorResponse
// @Router /contests/{contestID} [get]
func (h *ContestHandler) GetContest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "contestID")
	if !ok {
		return
	}

	contest, err := h.service.GetContest(r.Context(), id)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contest)
}
