package domain

import (
	"context"
	"time"
)

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description,omitempty"`
	BasePrice   float64  `json:"basePrice"`
	SalePrice   *float64 `json:"salePrice,omitempty"`
	// InStock is the flat counter for products without variants. Products
	// with variants track stock per variant row instead.
	InStock   int       `json:"inStock"`
	IsActive  bool      `json:"isActive"`
	Variants  []Variant `json:"variants,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Variant is a color/size combination with its own stock counter.
type Variant struct {
	ID        string   `json:"id"`
	ProductID string   `json:"productId"`
	Color     string   `json:"color"`
	Size      string   `json:"size"`
	Price     *float64 `json:"price,omitempty"`     // Override of product price
	SalePrice *float64 `json:"salePrice,omitempty"` // Override of product sale price
	Stock     int      `json:"stock"`
}

type ProductRepository interface {
	GetProductByID(ctx context.Context, id string) (*Product, error)
	GetVariant(ctx context.Context, variantID string) (*Variant, error)

	// DecrementStock atomically decrements a variant's stock only while
	// enough remains (stock = stock - qty WHERE stock >= qty). Returns
	// ErrInsufficientStock when the condition fails. This closes the
	// read-modify-write race under concurrent checkouts. refID ties the
	// movement row to the order that consumed the stock.
	DecrementStock(ctx context.Context, variantID string, qty int, refID string) error

	// DecrementProductStock is the same conditional decrement against the
	// flat in_stock counter of a variantless product.
	DecrementProductStock(ctx context.Context, productID string, qty int, refID string) error

	// AdjustStock applies an unconditional delta (restock on cancel) and
	// records a movement row for the audit trail.
	AdjustStock(ctx context.Context, variantID string, delta int, reason, refID string) error

	// AdjustProductStock is the flat-counter counterpart of AdjustStock.
	AdjustProductStock(ctx context.Context, productID string, delta int, reason, refID string) error
}
