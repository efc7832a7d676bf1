package handlers

import (
	"net/http"
	"strconv"

	"github.com/pickline/backend/internal/services"
)

type QRHandler struct {
	service *services.VoucherService
}

func NewQRHandler(service *services.VoucherService) *QRHandler {
	return &QRHandler{service: service}
}

// RedemptionQR renders the voucher of a redemption as a QR code
// @Summary Redemption voucher QR code
// @Description Returns a PNG QR code encoding the voucher code. Only the owner may fetch it.
// @Tags Rewards
// @Produce png
// @Security BearerAuth
// @Param redemptionID path string true "Redemption ID"
// @Param size query int false "Edge length in pixels (64-1024)"
// @Success 200 {file} binary
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /redemptions/{redemptionID}/qr [get]
func (h *QRHandler) RedemptionQR(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	redemptionID, ok := pathUUID(w, r, "redemptionID")
	if !ok {
		return
	}

	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			services.SendErrorResponse(w, "Invalid size", http.StatusBadRequest, nil)
			return
		}
		size = n
	}

	png, err := h.service.QRCode(r.Context(), userID, redemptionID, size)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
