package usecase

import (
	"context"
	"mime/multipart"
	"sync"
	"time"

	"fmbq-backend/internal/domain"
)

// --- Order repository mock ---

type mockOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	carts    map[string]*domain.Cart // keyed by user id
	items    map[string][]domain.CartItem
	tracking []domain.TrackingEntry
	history  []domain.StatusHistoryEntry
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[string]*domain.Order),
		carts:  make(map[string]*domain.Cart),
		items:  make(map[string][]domain.CartItem),
	}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *mockOrderRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.OrderID == orderID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockOrderRepo) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, order := range m.orders {
		out = append(out, *order)
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) UpdateStatusIfCurrent(ctx context.Context, id, current, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.Status != current {
		return domain.ErrConcurrencyConflict
	}
	order.Status = next
	return nil
}

func (m *mockOrderRepo) SetPaymentProof(ctx context.Context, id, imageURL string, details domain.JSONB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.PaymentVerification.Image = &imageURL
	order.PaymentVerification.Status = domain.PaymentVerificationPending
	order.PaymentVerification.TransactionDetails = details
	return nil
}

func (m *mockOrderRepo) UpdatePaymentVerification(ctx context.Context, id string, pv *domain.PaymentVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.PaymentVerification = *pv
	return nil
}

func (m *mockOrderRepo) AppendTracking(ctx context.Context, entry *domain.TrackingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Date = time.Now()
	m.tracking = append(m.tracking, *entry)
	return nil
}

func (m *mockOrderRepo) GetTracking(ctx context.Context, orderID string) ([]domain.TrackingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TrackingEntry
	for i := len(m.tracking) - 1; i >= 0; i-- {
		if m.tracking[i].OrderID == orderID {
			out = append(out, m.tracking[i])
		}
	}
	return out, nil
}

func (m *mockOrderRepo) CreateStatusHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.CreatedAt = time.Now()
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockOrderRepo) GetStatusHistory(ctx context.Context, orderID string) ([]domain.StatusHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StatusHistoryEntry
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *cart
	return &cp, nil
}

func (m *mockOrderRepo) CreateCart(ctx context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Mirrors the carts.user_id unique constraint.
	if _, exists := m.carts[*cart.UserID]; exists {
		return domain.ErrConcurrencyConflict
	}
	cp := *cart
	m.carts[*cart.UserID] = &cp
	return nil
}

func (m *mockOrderRepo) GetCartWithItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem(nil), m.items[userID]...), nil
}

func (m *mockOrderRepo) UpsertCartItem(ctx context.Context, cartID, productID string, variantID *string, quantity int) error {
	return nil
}

func (m *mockOrderRepo) RemoveCartItem(ctx context.Context, userID, productID string, variantID *string) error {
	return nil
}

func (m *mockOrderRepo) ClearCart(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for userID, cart := range m.carts {
		if cart.ID == cartID {
			m.items[userID] = nil
		}
	}
	return nil
}

func (m *mockOrderRepo) trackingCount(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.tracking {
		if e.OrderID == orderID {
			n++
		}
	}
	return n
}

func (m *mockOrderRepo) historyCount(orderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.history {
		if h.OrderID == orderID {
			n++
		}
	}
	return n
}

// --- Product repository mock ---

type mockProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	variants map[string]*domain.Variant
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{
		products: make(map[string]*domain.Product),
		variants: make(map[string]*domain.Variant),
	}
}

func (m *mockProductRepo) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetVariant(ctx context.Context, variantID string) (*domain.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[variantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *mockProductRepo) DecrementStock(ctx context.Context, variantID string, qty int, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[variantID]
	if !ok {
		return domain.ErrNotFound
	}
	if v.Stock < qty {
		return domain.ErrInsufficientStock
	}
	v.Stock -= qty
	return nil
}

func (m *mockProductRepo) DecrementProductStock(ctx context.Context, productID string, qty int, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.InStock < qty {
		return domain.ErrInsufficientStock
	}
	p.InStock -= qty
	return nil
}

func (m *mockProductRepo) AdjustStock(ctx context.Context, variantID string, delta int, reason, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[variantID]
	if !ok {
		return domain.ErrNotFound
	}
	v.Stock += delta
	return nil
}

func (m *mockProductRepo) AdjustProductStock(ctx context.Context, productID string, delta int, reason, refID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.InStock += delta
	return nil
}

// --- Config repository mock ---

type mockConfigRepo struct {
	zones map[string]*domain.ShippingZone
}

func newMockConfigRepo() *mockConfigRepo {
	return &mockConfigRepo{zones: map[string]*domain.ShippingZone{
		"inside_city": {ID: 1, Key: "inside_city", Label: "Inside City", Cost: 60, IsActive: true},
	}}
}

func (m *mockConfigRepo) GetActiveShippingZones(ctx context.Context) ([]domain.ShippingZone, error) {
	var out []domain.ShippingZone
	for _, z := range m.zones {
		out = append(out, *z)
	}
	return out, nil
}

func (m *mockConfigRepo) GetShippingZoneByKey(ctx context.Context, key string) (*domain.ShippingZone, error) {
	z, ok := m.zones[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return z, nil
}

// --- Notification repository mock ---

type mockNotifRepo struct {
	mu            sync.Mutex
	nextID        int64
	events        []domain.OutboxEvent
	notifications []domain.Notification
}

func newMockNotifRepo() *mockNotifRepo {
	return &mockNotifRepo{}
}

func (m *mockNotifRepo) CreateNotification(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockNotifRepo) GetAllNotifications(ctx context.Context, limit, offset int) ([]domain.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Notification(nil), m.notifications...), int64(len(m.notifications)), nil
}

func (m *mockNotifRepo) Enqueue(ctx context.Context, ev *domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	if ev.Status == "" {
		ev.Status = domain.NotificationStatusPending
	}
	ev.CreatedAt = time.Now()
	m.events = append(m.events, *ev)
	return nil
}

// ClaimPending mirrors the claiming UPDATE: returned events flip to
// processing under the lock, so a second claimer cannot see them.
func (m *mockNotifRepo) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OutboxEvent
	for i := range m.events {
		if m.events[i].Status == domain.NotificationStatusPending && len(out) < limit {
			m.events[i].Status = domain.NotificationStatusProcessing
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func (m *mockNotifRepo) MarkDispatched(ctx context.Context, id int64) error {
	return m.setStatus(id, domain.NotificationStatusSent)
}

func (m *mockNotifRepo) MarkFailed(ctx context.Context, id int64) error {
	return m.setStatus(id, domain.NotificationStatusFailed)
}

func (m *mockNotifRepo) setStatus(id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		if m.events[i].ID == id {
			m.events[i].Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockNotifRepo) pendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Status == domain.NotificationStatusPending {
			n++
		}
	}
	return n
}

// --- User repository mock ---

type mockUserRepo struct {
	mu     sync.Mutex
	tokens map[string][]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{tokens: make(map[string][]string)}
}

func (m *mockUserRepo) SaveDeviceToken(ctx context.Context, token *domain.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.UserID] = append(m.tokens[token.UserID], token.Token)
	return nil
}

func (m *mockUserRepo) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []string
	for _, t := range m.tokens[userID] {
		if t != token {
			kept = append(kept, t)
		}
	}
	m.tokens[userID] = kept
	return nil
}

func (m *mockUserRepo) GetDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens[userID]...), nil
}

func (m *mockUserRepo) GetAllDeviceTokens(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, list := range m.tokens {
		all = append(all, list...)
	}
	return all, nil
}

// --- Transaction manager mock (no-op passthrough) ---

type mockTxManager struct{}

func (mockTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Event publisher mock ---

type mockPublisher struct {
	mu     sync.Mutex
	events []interface{}
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, payload)
	return nil
}

// --- Push sender mock ---

type mockPushSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func newMockPushSender() *mockPushSender {
	return &mockPushSender{fail: make(map[string]bool)}
}

func (m *mockPushSender) SendPush(ctx context.Context, token, title, body string, data map[string]string) (*domain.PushTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[token] {
		return nil, domain.ErrUpstreamFailure
	}
	m.sent = append(m.sent, token)
	return &domain.PushTicket{ID: "ticket-" + token, Status: "ok"}, nil
}

// --- Cache mock ---

type mockCache struct {
	mu    sync.Mutex
	store map[string]interface{}
}

func newMockCache() *mockCache {
	return &mockCache{store: make(map[string]interface{})}
}

func (m *mockCache) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	return v, ok
}

func (m *mockCache) Set(key string, value interface{}, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
}

func (m *mockCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
}

func (m *mockCache) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]interface{})
}

// --- Proof storage mock ---

type mockProofStorage struct {
	uploads int
}

func (m *mockProofStorage) UploadPaymentProof(ctx context.Context, orderID string, file multipart.File, fileHeader *multipart.FileHeader) (string, error) {
	m.uploads++
	return "https://cdn.example.com/payment-proofs/" + orderID + "/proof.jpg", nil
}
