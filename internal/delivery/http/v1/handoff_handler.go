package v1

import (
	"net/http"

	"fmbq-backend/internal/usecase"
	"fmbq-backend/pkg/logger"
	"fmbq-backend/pkg/utils"
)

// HandoffHandler serves the QR hand-off endpoints used by the delivery app.
type HandoffHandler struct {
	handoffUC *usecase.HandoffUsecase
}

func NewHandoffHandler(handoffUC *usecase.HandoffUsecase) *HandoffHandler {
	return &HandoffHandler{handoffUC: handoffUC}
}

// GetQR returns the payload to encode into the package label. Admin only.
func (h *HandoffHandler) GetQR(w http.ResponseWriter, r *http.Request) {
	payload, err := h.handoffUC.GetQRPayload(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, payload)
}

type scanReq struct {
	OrderID  string `json:"orderId" validate:"required"`
	Hash     string `json:"hash" validate:"required,len=64,hexadecimal"`
	Location string `json:"location"`
}

// Scan advances the order one hop along the delivery path after verifying
// the hand-off code.
func (h *HandoffHandler) Scan(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req scanReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	order, err := h.handoffUC.Scan(r.Context(), req.OrderID, req.Hash, req.Location, user.ID)
	if err != nil {
		logger.Get().Warn().Err(err).
			Str("order_id", req.OrderID).
			Str("deliverer", user.ID).
			Msg("hand-off scan rejected")
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}
