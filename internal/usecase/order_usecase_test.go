package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"fmbq-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrderFixture() (*OrderUsecase, *mockOrderRepo, *mockProductRepo, *mockNotifRepo, *mockPublisher) {
	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	configRepo := newMockConfigRepo()
	notifRepo := newMockNotifRepo()
	publisher := &mockPublisher{}

	uc := NewOrderUsecase(orderRepo, productRepo, configRepo, notifRepo,
		mockTxManager{}, publisher, "order-events", newMockCache(), time.Minute)
	return uc, orderRepo, productRepo, notifRepo, publisher
}

func seedOrder(repo *mockOrderRepo, id, status string) *domain.Order {
	order := &domain.Order{
		ID:      id,
		OrderID: "ORD-000001-0001",
		UserID:  "user-1",
		Status:  status,
	}
	repo.orders[id] = order
	return order
}

func TestUpdateOrderStatus_ValidTransition(t *testing.T) {
	uc, orderRepo, _, notifRepo, publisher := newOrderFixture()
	seedOrder(orderRepo, "o1", domain.OrderStatusProcessing)

	order, err := uc.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusShipped, "handed to courier", "Dhaka hub", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)

	stored, _ := orderRepo.GetByID(context.Background(), "o1")
	assert.Equal(t, domain.OrderStatusShipped, stored.Status)

	// Exactly one tracking entry and one history entry per successful move.
	assert.Equal(t, 1, orderRepo.trackingCount("o1"))
	assert.Equal(t, 1, orderRepo.historyCount("o1"))
	assert.Equal(t, 1, notifRepo.pendingCount())
	assert.Len(t, publisher.events, 1)

	tracking, _ := orderRepo.GetTracking(context.Background(), "o1")
	assert.Equal(t, "handed to courier", tracking[0].Description)
	assert.Equal(t, "Dhaka hub", tracking[0].Location)
}

func TestUpdateOrderStatus_InvalidTransitionLeavesOrderUntouched(t *testing.T) {
	uc, orderRepo, _, notifRepo, publisher := newOrderFixture()
	seedOrder(orderRepo, "o1", domain.OrderStatusDelivered)

	_, err := uc.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusPending, "", "", "admin-1")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, _ := orderRepo.GetByID(context.Background(), "o1")
	assert.Equal(t, domain.OrderStatusDelivered, stored.Status)
	assert.Zero(t, orderRepo.trackingCount("o1"))
	assert.Zero(t, orderRepo.historyCount("o1"))
	assert.Zero(t, notifRepo.pendingCount())
	assert.Empty(t, publisher.events)
}

func TestUpdateOrderStatus_UnknownStatusRejected(t *testing.T) {
	uc, orderRepo, _, _, _ := newOrderFixture()
	seedOrder(orderRepo, "o1", domain.OrderStatusPending)

	_, err := uc.UpdateOrderStatus(context.Background(), "o1", "misplaced", "", "", "admin-1")
	require.ErrorIs(t, err, domain.ErrValidation)

	stored, _ := orderRepo.GetByID(context.Background(), "o1")
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
}

// racingTxManager flips the order's status between the validation read and
// the conditional write, simulating a concurrent actor winning the race.
type racingTxManager struct {
	repo *mockOrderRepo
	id   string
}

func (r *racingTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	r.repo.mu.Lock()
	r.repo.orders[r.id].Status = domain.OrderStatusCancelled
	r.repo.mu.Unlock()
	return fn(ctx)
}

func TestUpdateOrderStatus_ConcurrentMoveConflicts(t *testing.T) {
	orderRepo := newMockOrderRepo()
	notifRepo := newMockNotifRepo()
	seedOrder(orderRepo, "o1", domain.OrderStatusProcessing)

	uc := NewOrderUsecase(orderRepo, newMockProductRepo(), newMockConfigRepo(), notifRepo,
		&racingTxManager{repo: orderRepo, id: "o1"}, &mockPublisher{}, "order-events", newMockCache(), time.Minute)

	_, err := uc.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusShipped, "", "", "admin-1")
	require.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	// The losing writer left no timeline or history rows behind.
	assert.Zero(t, orderRepo.trackingCount("o1"))
	assert.Zero(t, orderRepo.historyCount("o1"))
	assert.Zero(t, notifRepo.pendingCount())
}

func seedCheckoutFixture(orderRepo *mockOrderRepo, productRepo *mockProductRepo, userID string, stock, qty int) {
	variantID := "v1"
	productRepo.products["p1"] = &domain.Product{
		ID: "p1", Name: "Tee", Slug: "tee", BasePrice: 500,
		Variants: []domain.Variant{{ID: variantID, ProductID: "p1", Color: "black", Size: "M", Stock: stock}},
	}
	productRepo.variants[variantID] = &productRepo.products["p1"].Variants[0]

	cart := &domain.Cart{ID: "cart-" + userID, UserID: &userID}
	orderRepo.carts[userID] = cart
	orderRepo.items[userID] = []domain.CartItem{{
		ID: "ci-" + userID, CartID: cart.ID, ProductID: "p1",
		VariantID: &variantID, Quantity: qty, Price: 500,
	}}
}

func TestCheckout_HappyPath(t *testing.T) {
	uc, orderRepo, productRepo, notifRepo, publisher := newOrderFixture()
	seedCheckoutFixture(orderRepo, productRepo, "user-1", 10, 2)

	order, err := uc.Checkout(context.Background(), "user-1", CheckoutReq{
		Mobile:        "01700000000",
		Address:       domain.JSONB{"line1": "House 1"},
		PaymentMethod: domain.PaymentMethodCOD,
		DeliveryZone:  "inside_city",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Regexp(t, `^ORD-\d{6}-\d{4}$`, order.OrderID)
	assert.Equal(t, 1000.0, order.Subtotal)
	assert.Equal(t, 60.0, order.ShippingFee)
	assert.Equal(t, 1060.0, order.GrandTotal)

	// Stock decremented, cart cleared, confirmation enqueued.
	assert.Equal(t, 8, productRepo.variants["v1"].Stock)
	items, _ := orderRepo.GetCartWithItems(context.Background(), "user-1")
	assert.Empty(t, items)
	assert.Equal(t, 1, notifRepo.pendingCount())
	assert.Equal(t, 1, orderRepo.trackingCount(order.ID))
	assert.Len(t, publisher.events, 1)
}

func TestCheckout_PrepaidStartsInPendingVerification(t *testing.T) {
	uc, orderRepo, productRepo, _, _ := newOrderFixture()
	seedCheckoutFixture(orderRepo, productRepo, "user-1", 10, 1)

	order, err := uc.Checkout(context.Background(), "user-1", CheckoutReq{
		Mobile:        "01700000000",
		Address:       domain.JSONB{"line1": "House 1"},
		PaymentMethod: domain.PaymentMethodBankTransfer,
		DeliveryZone:  "inside_city",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPendingVerification, order.Status)
	assert.Equal(t, domain.PaymentVerificationPending, order.PaymentVerification.Status)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	uc, _, _, _, _ := newOrderFixture()

	_, err := uc.Checkout(context.Background(), "user-1", CheckoutReq{
		Mobile:        "01700000000",
		Address:       domain.JSONB{"line1": "House 1"},
		PaymentMethod: domain.PaymentMethodCOD,
		DeliveryZone:  "inside_city",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	uc, orderRepo, productRepo, _, _ := newOrderFixture()
	seedCheckoutFixture(orderRepo, productRepo, "user-1", 1, 5)

	_, err := uc.Checkout(context.Background(), "user-1", CheckoutReq{
		Mobile:        "01700000000",
		Address:       domain.JSONB{"line1": "House 1"},
		PaymentMethod: domain.PaymentMethodCOD,
		DeliveryZone:  "inside_city",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// Concurrent checkouts against stock S must never produce more than S
// successful unit sales.
func TestCheckout_ConcurrentStockNeverOversells(t *testing.T) {
	const stock = 5
	const buyers = 20

	orderRepo := newMockOrderRepo()
	productRepo := newMockProductRepo()
	notifRepo := newMockNotifRepo()
	uc := NewOrderUsecase(orderRepo, productRepo, newMockConfigRepo(), notifRepo,
		mockTxManager{}, &mockPublisher{}, "order-events", newMockCache(), time.Minute)

	variantID := "v1"
	productRepo.products["p1"] = &domain.Product{
		ID: "p1", Name: "Tee", Slug: "tee", BasePrice: 500,
		Variants: []domain.Variant{{ID: variantID, ProductID: "p1", Stock: stock}},
	}
	productRepo.variants[variantID] = &productRepo.products["p1"].Variants[0]

	for i := 0; i < buyers; i++ {
		userID := string(rune('a'+i)) + "-user"
		cart := &domain.Cart{ID: "cart-" + userID, UserID: &userID}
		orderRepo.carts[userID] = cart
		orderRepo.items[userID] = []domain.CartItem{{
			CartID: cart.ID, ProductID: "p1", VariantID: &variantID, Quantity: 1, Price: 500,
		}}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for userID := range orderRepo.carts {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := uc.Checkout(context.Background(), uid, CheckoutReq{
				Mobile:        "01700000000",
				Address:       domain.JSONB{"line1": "House 1"},
				PaymentMethod: domain.PaymentMethodCOD,
				DeliveryZone:  "inside_city",
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(userID)
	}
	wg.Wait()

	assert.LessOrEqual(t, successes, stock)
	assert.GreaterOrEqual(t, productRepo.variants["v1"].Stock, 0)
}

func TestUpdateOrderStatus_CancelRestocksItems(t *testing.T) {
	uc, orderRepo, productRepo, _, _ := newOrderFixture()

	variantID := "v1"
	productRepo.products["p1"] = &domain.Product{
		ID: "p1", Name: "Tee", Slug: "tee", BasePrice: 500,
		Variants: []domain.Variant{{ID: variantID, ProductID: "p1", Stock: 8}},
	}
	productRepo.variants[variantID] = &productRepo.products["p1"].Variants[0]
	productRepo.products["p2"] = &domain.Product{ID: "p2", Name: "Mug", Slug: "mug", BasePrice: 200, InStock: 3}

	order := seedOrder(orderRepo, "o1", domain.OrderStatusProcessing)
	order.Items = []domain.OrderItem{
		{ProductID: "p1", VariantID: &variantID, Quantity: 2, Price: 500},
		{ProductID: "p2", Quantity: 1, Price: 200},
	}

	_, err := uc.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusCancelled, "customer request", "", "admin-1")
	require.NoError(t, err)

	// The units the checkout consumed are back on the shelf.
	assert.Equal(t, 10, productRepo.variants["v1"].Stock)
	assert.Equal(t, 4, productRepo.products["p2"].InStock)
}

func TestUpdateOrderStatus_NonCancelLeavesStockAlone(t *testing.T) {
	uc, orderRepo, productRepo, _, _ := newOrderFixture()

	variantID := "v1"
	productRepo.products["p1"] = &domain.Product{
		ID: "p1", Name: "Tee", Slug: "tee", BasePrice: 500,
		Variants: []domain.Variant{{ID: variantID, ProductID: "p1", Stock: 8}},
	}
	productRepo.variants[variantID] = &productRepo.products["p1"].Variants[0]

	order := seedOrder(orderRepo, "o1", domain.OrderStatusProcessing)
	order.Items = []domain.OrderItem{{ProductID: "p1", VariantID: &variantID, Quantity: 2, Price: 500}}

	_, err := uc.UpdateOrderStatus(context.Background(), "o1", domain.OrderStatusShipped, "", "", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 8, productRepo.variants["v1"].Stock)
}

func seedFlatCheckoutFixture(orderRepo *mockOrderRepo, productRepo *mockProductRepo, userID string, stock, qty int) {
	productRepo.products["p2"] = &domain.Product{
		ID: "p2", Name: "Mug", Slug: "mug", BasePrice: 200, InStock: stock,
	}

	cart := &domain.Cart{ID: "cart-" + userID, UserID: &userID}
	orderRepo.carts[userID] = cart
	orderRepo.items[userID] = []domain.CartItem{{
		ID: "ci-" + userID, CartID: cart.ID, ProductID: "p2", Quantity: qty, Price: 200,
	}}
}

func TestCheckout_FlatStockProduct(t *testing.T) {
	uc, orderRepo, productRepo, _, _ := newOrderFixture()
	seedFlatCheckoutFixture(orderRepo, productRepo, "user-1", 3, 2)

	order, err := uc.Checkout(context.Background(), "user-1", CheckoutReq{
		Mobile:        "01700000000",
		Address:       domain.JSONB{"line1": "House 1"},
		PaymentMethod: domain.PaymentMethodCOD,
		DeliveryZone:  "inside_city",
	})
	require.NoError(t, err)

	// Variantless products sell against the flat counter.
	require.Len(t, order.Items, 1)
	assert.Nil(t, order.Items[0].VariantID)
	assert.Equal(t, 1, productRepo.products["p2"].InStock)
}

func TestCheckout_FlatStockInsufficient(t *testing.T) {
	uc, orderRepo, productRepo, _, _ := newOrderFixture()
	seedFlatCheckoutFixture(orderRepo, productRepo, "user-1", 1, 5)

	_, err := uc.Checkout(context.Background(), "user-1", CheckoutReq{
		Mobile:        "01700000000",
		Address:       domain.JSONB{"line1": "House 1"},
		PaymentMethod: domain.PaymentMethodCOD,
		DeliveryZone:  "inside_city",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 1, productRepo.products["p2"].InStock)
}

func TestAddToCart_FlatStockProduct(t *testing.T) {
	uc, _, productRepo, _, _ := newOrderFixture()
	productRepo.products["p2"] = &domain.Product{
		ID: "p2", Name: "Mug", Slug: "mug", BasePrice: 200, InStock: 3,
	}

	_, err := uc.AddToCart(context.Background(), "user-1", "p2", nil, 2)
	require.NoError(t, err)

	_, err = uc.AddToCart(context.Background(), "user-1", "p2", nil, 4)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// Two first requests racing on cart creation must both come back with the
// same cart instead of surfacing the unique-constraint loss as an error.
func TestGetMyCart_ConcurrentFirstRequestsShareOneCart(t *testing.T) {
	uc, _, _, _, _ := newOrderFixture()

	const callers = 10
	var wg sync.WaitGroup
	ids := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cart, err := uc.GetMyCart(context.Background(), "user-1")
			errs[n] = err
			if err == nil {
				ids[n] = cart.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestGetMyOrder_OwnershipEnforced(t *testing.T) {
	uc, orderRepo, _, _, _ := newOrderFixture()
	seedOrder(orderRepo, "o1", domain.OrderStatusPending)

	_, err := uc.GetMyOrder(context.Background(), "someone-else", "o1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	order, err := uc.GetMyOrder(context.Background(), "user-1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", order.ID)
}
