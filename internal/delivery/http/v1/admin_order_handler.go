package v1

import (
	"net/http"

	"fmbq-backend/internal/domain"
	"fmbq-backend/internal/usecase"
	"fmbq-backend/pkg/logger"
	"fmbq-backend/pkg/utils"
)

// AdminOrderHandler serves the back-office order management endpoints.
type AdminOrderHandler struct {
	orderUC   *usecase.OrderUsecase
	paymentUC *usecase.PaymentUsecase
	notifUC   *usecase.NotificationUsecase
}

func NewAdminOrderHandler(orderUC *usecase.OrderUsecase, paymentUC *usecase.PaymentUsecase, notifUC *usecase.NotificationUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{
		orderUC:   orderUC,
		paymentUC: paymentUC,
		notifUC:   notifUC,
	}
}

func (h *AdminOrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.OrderFilter{
		Page:               utils.ParseInt(q.Get("page"), 1),
		Limit:              utils.ParseInt(q.Get("limit"), 20),
		Status:             q.Get("status"),
		VerificationStatus: q.Get("verificationStatus"),
		Search:             q.Get("search"),
	}

	orders, total, err := h.orderUC.GetAllOrders(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

func (h *AdminOrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderUC.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

type updateStatusReq struct {
	Status   string `json:"status" validate:"required"`
	Note     string `json:"note"`
	Location string `json:"location"`
}

func (h *AdminOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req updateStatusReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	order, err := h.orderUC.UpdateOrderStatus(r.Context(), r.PathValue("id"), req.Status, req.Note, req.Location, user.ID)
	if err != nil {
		logger.Get().Warn().Err(err).
			Str("order_id", r.PathValue("id")).
			Str("target", req.Status).
			Msg("status update rejected")
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

type verifyPaymentReq struct {
	Outcome string `json:"outcome" validate:"required,oneof=verified rejected"`
	Note    string `json:"note"`
}

func (h *AdminOrderHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verifyPaymentReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	order, err := h.paymentUC.VerifyPayment(r.Context(), r.PathValue("id"), req.Outcome, req.Note, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

func (h *AdminOrderHandler) GetTracking(w http.ResponseWriter, r *http.Request) {
	tracking, err := h.orderUC.GetTracking(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tracking)
}

func (h *AdminOrderHandler) GetStatusHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.orderUC.GetStatusHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

// --- Notifications ---

type broadcastReq struct {
	Title   string   `json:"title" validate:"required,max=120"`
	Message string   `json:"message" validate:"required,max=500"`
	UserIDs []string `json:"userIds" validate:"omitempty,dive,uuid"`
}

func (h *AdminOrderHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	enqueued, err := h.notifUC.Broadcast(r.Context(), req.Title, req.Message, req.UserIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"enqueued": enqueued,
	})
}

func (h *AdminOrderHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := utils.ParseInt(q.Get("limit"), 20)
	page := utils.ParseInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}

	list, total, err := h.notifUC.ListNotifications(r.Context(), limit, (page-1)*limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}
