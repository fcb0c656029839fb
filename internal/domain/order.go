package domain

import (
	"context"
	"time"
)

type OrderFilter struct {
	Page               int
	Limit              int
	Status             string
	VerificationStatus string
	Search             string
}

// --- Cart Entities ---

type Cart struct {
	ID        string     `json:"id"`
	UserID    *string    `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItem struct {
	ID        string  `json:"id"`
	CartID    string  `json:"cartId"`
	ProductID string  `json:"productId"`
	Product   Product `json:"product"`
	VariantID *string `json:"variantId"`
	Color     *string `json:"color"`
	Size      *string `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // Effective unit price
	Discount  float64 `json:"discount"`
}

// --- Order Entities ---

type Order struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"` // Human-readable, ORD-######-####
	UserID  string `json:"userId"`
	User    User   `json:"user"`
	Status  string `json:"status"`
	Mobile  string `json:"mobile"`

	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	ShippingFee float64 `json:"shippingFee"`
	GrandTotal  float64 `json:"grandTotal"`

	ShippingAddress JSONB  `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`

	PaymentVerification PaymentVerification  `json:"paymentVerification"`
	Items               []OrderItem          `json:"items"`
	Tracking            []TrackingEntry      `json:"tracking,omitempty"`
	StatusHistory       []StatusHistoryEntry `json:"statusHistory,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderItem struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"orderId"`
	ProductID string  `json:"productId"`
	Product   Product `json:"product"`
	VariantID *string `json:"variantId"`
	Color     *string `json:"color"`
	Size      *string `json:"size"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // Unit price at time of purchase
	Discount  float64 `json:"discount"`
}

// PaymentVerification tracks the manual review of a customer's payment proof.
type PaymentVerification struct {
	Image              *string    `json:"image"`
	Status             string     `json:"status"` // pending | verified | rejected
	TransactionDetails JSONB      `json:"transactionDetails,omitempty"`
	ReviewedBy         *string    `json:"reviewedBy,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
}

// TrackingEntry is one row of the append-only tracking timeline. Entries are
// never mutated or removed, only appended; reads return newest first.
type TrackingEntry struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Date        time.Time `json:"date"`
	UpdatedBy   *string   `json:"updatedBy,omitempty"`
}

type StatusHistoryEntry struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	PreviousStatus *string   `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Note           *string   `json:"note"`
	ChangedBy      *string   `json:"changedBy"`
	ChangedName    *string   `json:"changedName,omitempty"` // Enriched
	CreatedAt      time.Time `json:"createdAt"`
}

// --- Interfaces ---

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	GetByUserID(ctx context.Context, userID string) ([]Order, error)
	GetAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)

	// UpdateStatusIfCurrent performs a conditional status write: the row is
	// updated only while its status still equals current. Returns
	// ErrConcurrencyConflict when the guard fails.
	UpdateStatusIfCurrent(ctx context.Context, id, current, next string) error

	SetPaymentProof(ctx context.Context, id, imageURL string, details JSONB) error
	UpdatePaymentVerification(ctx context.Context, id string, pv *PaymentVerification) error

	AppendTracking(ctx context.Context, entry *TrackingEntry) error
	GetTracking(ctx context.Context, orderID string) ([]TrackingEntry, error)

	CreateStatusHistory(ctx context.Context, entry *StatusHistoryEntry) error
	GetStatusHistory(ctx context.Context, orderID string) ([]StatusHistoryEntry, error)

	// Cart
	GetCartByUserID(ctx context.Context, userID string) (*Cart, error)
	CreateCart(ctx context.Context, cart *Cart) error
	GetCartWithItems(ctx context.Context, userID string) ([]CartItem, error)
	UpsertCartItem(ctx context.Context, cartID, productID string, variantID *string, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID string, variantID *string) error
	ClearCart(ctx context.Context, cartID string) error
}

// TransactionManager runs fn inside a database transaction. Repositories
// participating in the transaction pick it up from the context.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher broadcasts state-change events to connected dashboard and
// mobile clients. Best-effort: publish failures are logged, never returned to
// the mutation that triggered them.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}
