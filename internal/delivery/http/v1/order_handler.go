package v1

import (
	"net/http"

	"fmbq-backend/internal/domain"
	"fmbq-backend/internal/usecase"
	"fmbq-backend/pkg/logger"
	"fmbq-backend/pkg/utils"

	"github.com/goccy/go-json"
)

// OrderHandler serves the storefront (customer) endpoints.
type OrderHandler struct {
	orderUC       *usecase.OrderUsecase
	paymentUC     *usecase.PaymentUsecase
	notifUC       *usecase.NotificationUsecase
	maxUploadSize int64
}

func NewOrderHandler(orderUC *usecase.OrderUsecase, paymentUC *usecase.PaymentUsecase, notifUC *usecase.NotificationUsecase, maxUploadSizeMB int64) *OrderHandler {
	return &OrderHandler{
		orderUC:       orderUC,
		paymentUC:     paymentUC,
		notifUC:       notifUC,
		maxUploadSize: maxUploadSizeMB << 20,
	}
}

// --- Cart ---

func (h *OrderHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	cart, err := h.orderUC.GetMyCart(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

type cartItemReq struct {
	ProductID string  `json:"productId" validate:"required,uuid"`
	VariantID *string `json:"variantId" validate:"omitempty,uuid"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=50"`
}

func (h *OrderHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req cartItemReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	cart, err := h.orderUC.AddToCart(r.Context(), user.ID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		logger.Get().Warn().Err(err).Str("user_id", user.ID).Str("product_id", req.ProductID).Msg("add to cart failed")
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

func (h *OrderHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		ProductID string  `json:"productId" validate:"required,uuid"`
		VariantID *string `json:"variantId" validate:"omitempty,uuid"`
		Quantity  int     `json:"quantity" validate:"min=0,max=50"`
	}
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	cart, err := h.orderUC.UpdateCartItem(r.Context(), user.ID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

func (h *OrderHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	productID := r.PathValue("productId")
	if productID == "" {
		utils.WriteError(w, http.StatusBadRequest, "product id required")
		return
	}
	var variantID *string
	if v := r.URL.Query().Get("variantId"); v != "" {
		variantID = &v
	}

	cart, err := h.orderUC.RemoveFromCart(r.Context(), user.ID, productID, variantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart)
}

// --- Checkout & Orders ---

func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req usecase.CheckoutReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	order, err := h.orderUC.Checkout(r.Context(), user.ID, req)
	if err != nil {
		logger.Get().Warn().Err(err).Str("user_id", user.ID).Msg("checkout failed")
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orders, err := h.orderUC.GetMyOrders(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	order, err := h.orderUC.GetMyOrder(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// GetMyTracking returns the order's timeline, newest entry first.
func (h *OrderHandler) GetMyTracking(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	order, err := h.orderUC.GetMyOrder(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tracking, err := h.orderUC.GetTracking(r.Context(), order.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tracking)
}

func (h *OrderHandler) GetShippingZones(w http.ResponseWriter, r *http.Request) {
	zones, err := h.orderUC.GetShippingZones(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, zones)
}

// --- Payment Proof ---

func (h *OrderHandler) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "file too large or malformed form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	var details domain.JSONB
	if raw := r.FormValue("transactionDetails"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &details); err != nil {
			utils.WriteError(w, http.StatusBadRequest, "invalid transaction details")
			return
		}
	}

	order, err := h.paymentUC.UploadProof(r.Context(), user.ID, r.PathValue("id"), file, header, details)
	if err != nil {
		logger.Get().Error().Err(err).Str("user_id", user.ID).Msg("payment proof upload failed")
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// --- Device Tokens ---

type deviceTokenReq struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

func (h *OrderHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req deviceTokenReq
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	token := &domain.DeviceToken{UserID: user.ID, Token: req.Token, Platform: req.Platform}
	if err := h.notifUC.RegisterDevice(r.Context(), token); err != nil {
		writeDomainError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, token)
}

func (h *OrderHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := decodeAndValidate(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.notifUC.UnregisterDevice(r.Context(), user.ID, req.Token); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
