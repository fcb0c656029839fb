package pgrepo

import (
	"context"

	"fmbq-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type productRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) domain.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}
	err := dbtx(ctx, r.db).QueryRow(ctx, `
		SELECT id, name, slug, COALESCE(description, ''), base_price, sale_price,
		       in_stock, is_active, created_at, updated_at
		FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.BasePrice, &p.SalePrice,
		&p.InStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}

	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT id, product_id, color, size, price, sale_price, stock
		FROM product_variants WHERE product_id = $1
		ORDER BY color, size`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Price, &v.SalePrice, &v.Stock); err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, v)
	}
	return p, rows.Err()
}

func (r *productRepository) GetVariant(ctx context.Context, variantID string) (*domain.Variant, error) {
	v := &domain.Variant{}
	err := dbtx(ctx, r.db).QueryRow(ctx, `
		SELECT id, product_id, color, size, price, sale_price, stock
		FROM product_variants WHERE id = $1`,
		variantID,
	).Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Price, &v.SalePrice, &v.Stock)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return v, nil
}

// DecrementStock is the single write path for checkout. The guard in the
// WHERE clause makes the decrement conditional on sufficient stock, so
// concurrent checkouts can never drive a counter negative.
func (r *productRepository) DecrementStock(ctx context.Context, variantID string, qty int, refID string) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE product_variants
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1`,
		qty, variantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}

	_, err = dbtx(ctx, r.db).Exec(ctx, `
		INSERT INTO stock_movements (variant_id, delta, reason, ref_id)
		VALUES ($1, $2, 'order_placed', $3)`,
		variantID, -qty, refID)
	return err
}

// DecrementProductStock covers products that carry only the flat in_stock
// counter, with the same conditional guard as the variant path.
func (r *productRepository) DecrementProductStock(ctx context.Context, productID string, qty int, refID string) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE products
		SET in_stock = in_stock - $1, updated_at = now()
		WHERE id = $2 AND in_stock >= $1`,
		qty, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}

	_, err = dbtx(ctx, r.db).Exec(ctx, `
		INSERT INTO stock_movements (product_id, delta, reason, ref_id)
		VALUES ($1, $2, 'order_placed', $3)`,
		productID, -qty, refID)
	return err
}

func (r *productRepository) AdjustStock(ctx context.Context, variantID string, delta int, reason, refID string) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE product_variants SET stock = stock + $1 WHERE id = $2`,
		delta, variantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	_, err = dbtx(ctx, r.db).Exec(ctx, `
		INSERT INTO stock_movements (variant_id, delta, reason, ref_id)
		VALUES ($1, $2, $3, $4)`,
		variantID, delta, reason, refID)
	return err
}

func (r *productRepository) AdjustProductStock(ctx context.Context, productID string, delta int, reason, refID string) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE products SET in_stock = in_stock + $1, updated_at = now() WHERE id = $2`,
		delta, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	_, err = dbtx(ctx, r.db).Exec(ctx, `
		INSERT INTO stock_movements (product_id, delta, reason, ref_id)
		VALUES ($1, $2, $3, $4)`,
		productID, delta, reason, refID)
	return err
}
