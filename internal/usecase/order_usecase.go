package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/cache"
	"fmbq-backend/pkg/utils"
)

type OrderUsecase struct {
	orderRepo    domain.OrderRepository
	productRepo  domain.ProductRepository
	configRepo   domain.ConfigRepository
	notifRepo    domain.NotificationRepository
	txManager    domain.TransactionManager
	publisher    domain.EventPublisher
	eventChannel string
	cache        cache.CacheService
	zoneTTL      time.Duration
}

func NewOrderUsecase(
	orderRepo domain.OrderRepository,
	productRepo domain.ProductRepository,
	configRepo domain.ConfigRepository,
	notifRepo domain.NotificationRepository,
	txManager domain.TransactionManager,
	publisher domain.EventPublisher,
	eventChannel string,
	cacheSvc cache.CacheService,
	zoneTTL time.Duration,
) *OrderUsecase {
	return &OrderUsecase{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		configRepo:   configRepo,
		notifRepo:    notifRepo,
		txManager:    txManager,
		publisher:    publisher,
		eventChannel: eventChannel,
		cache:        cacheSvc,
		zoneTTL:      zoneTTL,
	}
}

// --- Cart Logic ---

func (u *OrderUsecase) GetMyCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := u.orderRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		cart = &domain.Cart{ID: utils.GenerateUUID(), UserID: &userID}
		if err := u.orderRepo.CreateCart(ctx, cart); err != nil {
			// A concurrent first request won the one-cart-per-user race;
			// use the cart it created.
			if !errors.Is(err, domain.ErrConcurrencyConflict) {
				return nil, err
			}
			cart, err = u.orderRepo.GetCartByUserID(ctx, userID)
			if err != nil {
				return nil, err
			}
		}
	}

	items, err := u.orderRepo.GetCartWithItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (u *OrderUsecase) AddToCart(ctx context.Context, userID, productID string, variantID *string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}

	variantID, stock, err := u.resolveStock(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}

	cart, err := u.GetMyCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Merge with what's already in the cart for this line.
	existing := 0
	for _, item := range cart.Items {
		if item.ProductID == productID && sameVariant(item.VariantID, variantID) {
			existing = item.Quantity
			break
		}
	}
	total := existing + quantity
	if total > stock {
		return nil, fmt.Errorf("%w: only %d available", domain.ErrInsufficientStock, stock)
	}

	if err := u.orderRepo.UpsertCartItem(ctx, cart.ID, productID, variantID, total); err != nil {
		return nil, err
	}
	return u.GetMyCart(ctx, userID)
}

func (u *OrderUsecase) UpdateCartItem(ctx context.Context, userID, productID string, variantID *string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return u.RemoveFromCart(ctx, userID, productID, variantID)
	}

	variantID, stock, err := u.resolveStock(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if quantity > stock {
		return nil, fmt.Errorf("%w: only %d available", domain.ErrInsufficientStock, stock)
	}

	cart, err := u.GetMyCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := u.orderRepo.UpsertCartItem(ctx, cart.ID, productID, variantID, quantity); err != nil {
		return nil, err
	}
	return u.GetMyCart(ctx, userID)
}

func (u *OrderUsecase) RemoveFromCart(ctx context.Context, userID, productID string, variantID *string) (*domain.Cart, error) {
	if err := u.orderRepo.RemoveCartItem(ctx, userID, productID, variantID); err != nil {
		return nil, err
	}
	return u.GetMyCart(ctx, userID)
}

// resolveStock pins down which stock counter a cart line draws from. A
// product with a single variant is auto-selected; a variantless product
// sells against its flat in_stock counter and the line carries no variant.
func (u *OrderUsecase) resolveStock(ctx context.Context, productID string, variantID *string) (*string, int, error) {
	if variantID != nil {
		variant, err := u.productRepo.GetVariant(ctx, *variantID)
		if err != nil {
			return nil, 0, err
		}
		return variantID, variant.Stock, nil
	}

	product, err := u.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, 0, err
	}
	switch len(product.Variants) {
	case 0:
		return nil, product.InStock, nil
	case 1:
		return &product.Variants[0].ID, product.Variants[0].Stock, nil
	default:
		return nil, 0, fmt.Errorf("%w: variant selection required", domain.ErrValidation)
	}
}

func sameVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// --- Checkout ---

type CheckoutReq struct {
	Mobile             string       `json:"mobile" validate:"required,min=7"`
	Address            domain.JSONB `json:"address" validate:"required"`
	PaymentMethod      string       `json:"paymentMethod" validate:"required,oneof=cod card bank_transfer"`
	DeliveryZone       string       `json:"deliveryZone" validate:"required"`
	TransactionDetails domain.JSONB `json:"transactionDetails,omitempty"`
}

// Checkout materializes the user's cart into an order. Order creation, stock
// decrement, cart clearing, the first timeline entry and the confirmation
// outbox row commit or roll back together.
func (u *OrderUsecase) Checkout(ctx context.Context, userID string, req CheckoutReq) (*domain.Order, error) {
	cart, err := u.GetMyCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}

	zone, err := u.shippingZone(ctx, req.DeliveryZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown delivery zone %q", domain.ErrValidation, req.DeliveryZone)
	}

	var subtotal, discount float64
	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, ci := range cart.Items {
		subtotal += (ci.Price + ci.Discount) * float64(ci.Quantity)
		discount += ci.Discount * float64(ci.Quantity)
		items = append(items, domain.OrderItem{
			ID:        utils.GenerateUUID(),
			ProductID: ci.ProductID,
			VariantID: ci.VariantID,
			Color:     ci.Color,
			Size:      ci.Size,
			Quantity:  ci.Quantity,
			Price:     ci.Price,
			Discount:  ci.Discount,
		})
	}

	status := domain.OrderStatusPending
	pvStatus := domain.PaymentVerificationPending
	if req.PaymentMethod != domain.PaymentMethodCOD {
		// Prepaid orders wait for manual payment review.
		status = domain.OrderStatusPendingVerification
	}

	order := &domain.Order{
		ID:              utils.GenerateUUID(),
		OrderID:         utils.GenerateOrderID(),
		UserID:          userID,
		Status:          status,
		Mobile:          req.Mobile,
		Subtotal:        subtotal,
		Discount:        discount,
		ShippingFee:     zone.Cost,
		GrandTotal:      subtotal - discount + zone.Cost,
		ShippingAddress: req.Address,
		PaymentMethod:   req.PaymentMethod,
		PaymentVerification: domain.PaymentVerification{
			Status:             pvStatus,
			TransactionDetails: req.TransactionDetails,
		},
		Items: items,
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.CreateOrder(txCtx, order); err != nil {
			return err
		}

		for _, item := range order.Items {
			var err error
			if item.VariantID != nil {
				err = u.productRepo.DecrementStock(txCtx, *item.VariantID, item.Quantity, order.ID)
			} else {
				err = u.productRepo.DecrementProductStock(txCtx, item.ProductID, item.Quantity, order.ID)
			}
			if err != nil {
				return err
			}
		}

		if err := u.orderRepo.ClearCart(txCtx, cart.ID); err != nil {
			return err
		}

		if err := u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
			OrderID:     order.ID,
			Status:      order.Status,
			Description: statusDescriptions[order.Status],
			UpdatedBy:   &userID,
		}); err != nil {
			return err
		}

		if err := u.orderRepo.CreateStatusHistory(txCtx, &domain.StatusHistoryEntry{
			OrderID:   order.ID,
			NewStatus: order.Status,
			ChangedBy: &userID,
		}); err != nil {
			return err
		}

		return u.notifRepo.Enqueue(txCtx, &domain.OutboxEvent{
			OrderID: &order.ID,
			UserID:  &userID,
			Title:   "Order placed",
			Body:    fmt.Sprintf("Your order %s has been received.", order.OrderID),
			Data:    domain.JSONB{"orderId": order.OrderID},
		})
	})
	if err != nil {
		return nil, err
	}

	u.publish(ctx, OrderEvent{
		Type:      "order_created",
		OrderID:   order.ID,
		PublicID:  order.OrderID,
		UserID:    order.UserID,
		Status:    order.Status,
		Timestamp: time.Now(),
	})
	return order, nil
}

func (u *OrderUsecase) shippingZone(ctx context.Context, key string) (*domain.ShippingZone, error) {
	cacheKey := "shipping_zone:" + key
	if cached, ok := u.cache.Get(cacheKey); ok {
		if zone, ok := cached.(*domain.ShippingZone); ok {
			return zone, nil
		}
	}
	zone, err := u.configRepo.GetShippingZoneByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	u.cache.Set(cacheKey, zone, u.zoneTTL)
	return zone, nil
}

func (u *OrderUsecase) GetShippingZones(ctx context.Context) ([]domain.ShippingZone, error) {
	return u.configRepo.GetActiveShippingZones(ctx)
}

// --- Order Reads ---

func (u *OrderUsecase) GetMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return u.orderRepo.GetByUserID(ctx, userID)
}

// GetMyOrder returns the order only to its owner.
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

func (u *OrderUsecase) GetAllOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	return u.orderRepo.GetAll(ctx, filter)
}

func (u *OrderUsecase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return u.orderRepo.GetByID(ctx, id)
}

func (u *OrderUsecase) GetTracking(ctx context.Context, orderID string) ([]domain.TrackingEntry, error) {
	return u.orderRepo.GetTracking(ctx, orderID)
}

func (u *OrderUsecase) GetStatusHistory(ctx context.Context, orderID string) ([]domain.StatusHistoryEntry, error) {
	return u.orderRepo.GetStatusHistory(ctx, orderID)
}

// --- Status Machine ---

// UpdateOrderStatus moves an order one edge along the transition table. The
// status write is conditional on the status read at validation time, so a
// concurrent mutation surfaces as ErrConcurrencyConflict instead of a silent
// overwrite. Exactly one tracking entry and one history entry accompany a
// successful move.
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, orderID, target, note, location, actorID string) (*domain.Order, error) {
	if !domain.IsValidStatus(target) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, target)
	}

	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	current := order.Status
	if !domain.CanTransition(current, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, target)
	}

	description := note
	if description == "" {
		description = statusDescriptions[target]
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.UpdateStatusIfCurrent(txCtx, orderID, current, target); err != nil {
			return err
		}

		// Cancellation releases the stock the checkout consumed, in the
		// same transaction as the status write.
		if target == domain.OrderStatusCancelled {
			for _, item := range order.Items {
				var err error
				if item.VariantID != nil {
					err = u.productRepo.AdjustStock(txCtx, *item.VariantID, item.Quantity, "order_cancelled", order.ID)
				} else {
					err = u.productRepo.AdjustProductStock(txCtx, item.ProductID, item.Quantity, "order_cancelled", order.ID)
				}
				if err != nil {
					return err
				}
			}
		}

		if err := u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
			OrderID:     orderID,
			Status:      target,
			Description: description,
			Location:    location,
			UpdatedBy:   &actorID,
		}); err != nil {
			return err
		}

		var notePtr *string
		if note != "" {
			notePtr = &note
		}
		if err := u.orderRepo.CreateStatusHistory(txCtx, &domain.StatusHistoryEntry{
			OrderID:        orderID,
			PreviousStatus: &current,
			NewStatus:      target,
			Note:           notePtr,
			ChangedBy:      &actorID,
		}); err != nil {
			return err
		}

		return u.notifRepo.Enqueue(txCtx, &domain.OutboxEvent{
			OrderID: &order.ID,
			UserID:  &order.UserID,
			Title:   "Order update",
			Body:    fmt.Sprintf("Order %s: %s", order.OrderID, statusDescriptions[target]),
			Data:    domain.JSONB{"orderId": order.OrderID, "status": target},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = target
	u.publish(ctx, OrderEvent{
		Type:      "status_changed",
		OrderID:   order.ID,
		PublicID:  order.OrderID,
		UserID:    order.UserID,
		Status:    target,
		Timestamp: time.Now(),
	})
	return order, nil
}

func (u *OrderUsecase) publish(ctx context.Context, ev OrderEvent) {
	publishOrderEvent(ctx, u.publisher, u.eventChannel, ev)
}
