package pgrepo

import (
	"context"
	"fmt"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

type orderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) domain.OrderRepository {
	return &orderRepository{db: db}
}

// --- Cart Methods ---

func (r *orderRepository) GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := &domain.Cart{}
	err := dbtx(ctx, r.db).QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`,
		userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return cart, nil
}

func (r *orderRepository) CreateCart(ctx context.Context, cart *domain.Cart) error {
	if cart.ID == "" {
		cart.ID = utils.GenerateUUID()
	}
	err := dbtx(ctx, r.db).QueryRow(ctx,
		`INSERT INTO carts (id, user_id) VALUES ($1, $2)
		 RETURNING created_at, updated_at`,
		cart.ID, cart.UserID,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	// Two first requests can race on the one-cart-per-user constraint; the
	// loser re-reads the winner's cart.
	if err != nil && isUniqueViolation(err) {
		return domain.ErrConcurrencyConflict
	}
	return err
}

func (r *orderRepository) GetCartWithItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.variant_id, ci.quantity,
		       p.name, p.slug, p.base_price, p.sale_price,
		       v.color, v.size, v.price, v.sale_price
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		WHERE c.user_id = $1
		ORDER BY ci.id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		var salePrice, variantPrice, variantSalePrice *float64
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.VariantID, &item.Quantity,
			&item.Product.Name, &item.Product.Slug, &item.Product.BasePrice, &salePrice,
			&item.Color, &item.Size, &variantPrice, &variantSalePrice,
		); err != nil {
			return nil, err
		}
		item.Product.ID = item.ProductID
		item.Product.SalePrice = salePrice

		// Effective price: variant override beats product, sale beats base.
		item.Price = item.Product.BasePrice
		if variantPrice != nil {
			item.Price = *variantPrice
		}
		effective := item.Price
		if salePrice != nil {
			effective = *salePrice
		}
		if variantSalePrice != nil {
			effective = *variantSalePrice
		}
		if effective < item.Price {
			item.Discount = item.Price - effective
			item.Price = effective
		}

		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *orderRepository) UpsertCartItem(ctx context.Context, cartID, productID string, variantID *string, quantity int) error {
	_, err := dbtx(ctx, r.db).Exec(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, variant_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id, variant_id)
		DO UPDATE SET quantity = EXCLUDED.quantity`,
		utils.GenerateUUID(), cartID, productID, variantID, quantity)
	return err
}

func (r *orderRepository) RemoveCartItem(ctx context.Context, userID, productID string, variantID *string) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2
		  AND ($3::uuid IS NULL OR ci.variant_id = $3)`,
		userID, productID, variantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepository) ClearCart(ctx context.Context, cartID string) error {
	_, err := dbtx(ctx, r.db).Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

// --- Order Methods ---

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	q := dbtx(ctx, r.db)

	err := q.QueryRow(ctx, `
		INSERT INTO orders (
			id, order_id, user_id, status, mobile,
			subtotal, discount, shipping_fee, grand_total,
			shipping_address, payment_method,
			pv_status, pv_details
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		order.ID, order.OrderID, order.UserID, order.Status, order.Mobile,
		order.Subtotal, order.Discount, order.ShippingFee, order.GrandTotal,
		order.ShippingAddress, order.PaymentMethod,
		order.PaymentVerification.Status, order.PaymentVerification.TransactionDetails,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = utils.GenerateUUID()
		}
		item.OrderID = order.ID
		_, err := q.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, color, size, quantity, price, discount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			item.ID, order.ID, item.ProductID, item.VariantID, item.Color, item.Size,
			item.Quantity, item.Price, item.Discount)
		if err != nil {
			return err
		}
	}

	return nil
}

const orderColumns = `
	id, order_id, user_id, status, mobile,
	subtotal, discount, shipping_fee, grand_total,
	shipping_address, payment_method,
	pv_image, pv_status, pv_details, pv_reviewed_by, pv_reviewed_at,
	created_at, updated_at`

func (r *orderRepository) scanOrder(row interface{ Scan(dest ...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID, &order.OrderID, &order.UserID, &order.Status, &order.Mobile,
		&order.Subtotal, &order.Discount, &order.ShippingFee, &order.GrandTotal,
		&order.ShippingAddress, &order.PaymentMethod,
		&order.PaymentVerification.Image, &order.PaymentVerification.Status,
		&order.PaymentVerification.TransactionDetails,
		&order.PaymentVerification.ReviewedBy, &order.PaymentVerification.ReviewedAt,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return order, nil
}

func (r *orderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.variant_id, oi.color, oi.size,
		       oi.quantity, oi.price, oi.discount, p.name, p.slug
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`,
		order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.VariantID, &item.Color, &item.Size,
			&item.Quantity, &item.Price, &item.Discount, &item.Product.Name, &item.Product.Slug,
		); err != nil {
			return err
		}
		item.Product.ID = item.ProductID
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := r.scanOrder(dbtx(ctx, r.db).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := r.scanOrder(dbtx(ctx, r.db).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) GetAll(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := `WHERE ($1::text IS NULL OR o.status = $1)
		AND ($2::text IS NULL OR o.pv_status = $2)
		AND ($3::text IS NULL OR o.order_id ILIKE '%' || $3 || '%' OR o.mobile ILIKE '%' || $3 || '%')`

	var status, verification, search *string
	if filter.Status != "" {
		status = &filter.Status
	}
	if filter.VerificationStatus != "" {
		verification = &filter.VerificationStatus
	}
	if filter.Search != "" {
		search = &filter.Search
	}

	var count int64
	if err := dbtx(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM orders o `+where,
		status, verification, search,
	).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := dbtx(ctx, r.db).Query(ctx, fmt.Sprintf(`
		SELECT o.id, o.order_id, o.user_id, o.status, o.mobile,
		       o.subtotal, o.discount, o.shipping_fee, o.grand_total,
		       o.shipping_address, o.payment_method,
		       o.pv_image, o.pv_status, o.pv_details, o.pv_reviewed_by, o.pv_reviewed_at,
		       o.created_at, o.updated_at,
		       u.email, u.first_name, u.last_name
		FROM orders o
		JOIN users u ON u.id = o.user_id
		%s
		ORDER BY o.created_at DESC
		LIMIT $4 OFFSET $5`, where),
		status, verification, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var firstName, lastName *string
		if err := rows.Scan(
			&order.ID, &order.OrderID, &order.UserID, &order.Status, &order.Mobile,
			&order.Subtotal, &order.Discount, &order.ShippingFee, &order.GrandTotal,
			&order.ShippingAddress, &order.PaymentMethod,
			&order.PaymentVerification.Image, &order.PaymentVerification.Status,
			&order.PaymentVerification.TransactionDetails,
			&order.PaymentVerification.ReviewedBy, &order.PaymentVerification.ReviewedAt,
			&order.CreatedAt, &order.UpdatedAt,
			&order.User.Email, &firstName, &lastName,
		); err != nil {
			return nil, 0, err
		}
		order.User.FirstName = ptrString(firstName)
		order.User.LastName = ptrString(lastName)
		orders = append(orders, order)
	}

	return orders, count, rows.Err()
}

func (r *orderRepository) UpdateStatusIfCurrent(ctx context.Context, id, current, next string) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		next, id, current)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the order vanished or another actor moved it first.
		return domain.ErrConcurrencyConflict
	}
	return nil
}

func (r *orderRepository) SetPaymentProof(ctx context.Context, id, imageURL string, details domain.JSONB) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE orders
		SET pv_image = $1, pv_status = $2, pv_details = $3, updated_at = now()
		WHERE id = $4`,
		imageURL, domain.PaymentVerificationPending, details, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *orderRepository) UpdatePaymentVerification(ctx context.Context, id string, pv *domain.PaymentVerification) error {
	tag, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE orders
		SET pv_status = $1, pv_details = $2, pv_reviewed_by = $3, pv_reviewed_at = $4, updated_at = now()
		WHERE id = $5`,
		pv.Status, pv.TransactionDetails, pv.ReviewedBy, pv.ReviewedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// --- Tracking Timeline (append-only) ---

func (r *orderRepository) AppendTracking(ctx context.Context, entry *domain.TrackingEntry) error {
	if entry.ID == "" {
		entry.ID = utils.GenerateUUID()
	}
	return dbtx(ctx, r.db).QueryRow(ctx, `
		INSERT INTO order_tracking (id, order_id, status, description, location, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING date`,
		entry.ID, entry.OrderID, entry.Status, entry.Description, entry.Location, entry.UpdatedBy,
	).Scan(&entry.Date)
}

func (r *orderRepository) GetTracking(ctx context.Context, orderID string) ([]domain.TrackingEntry, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT id, order_id, status, description, location, date, updated_by
		FROM order_tracking
		WHERE order_id = $1
		ORDER BY date DESC`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TrackingEntry
	for rows.Next() {
		var e domain.TrackingEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Description, &e.Location, &e.Date, &e.UpdatedBy); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Status History ---

func (r *orderRepository) CreateStatusHistory(ctx context.Context, entry *domain.StatusHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = utils.GenerateUUID()
	}
	return dbtx(ctx, r.db).QueryRow(ctx, `
		INSERT INTO order_status_history (id, order_id, previous_status, new_status, note, changed_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		entry.ID, entry.OrderID, entry.PreviousStatus, entry.NewStatus, entry.Note, entry.ChangedBy,
	).Scan(&entry.CreatedAt)
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID string) ([]domain.StatusHistoryEntry, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT h.id, h.order_id, h.previous_status, h.new_status, h.note, h.changed_by, h.created_at,
		       u.first_name, u.last_name, u.email
		FROM order_status_history h
		LEFT JOIN users u ON u.id = h.changed_by
		WHERE h.order_id = $1
		ORDER BY h.created_at DESC`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.StatusHistoryEntry
	for rows.Next() {
		var h domain.StatusHistoryEntry
		var firstName, lastName, email *string
		if err := rows.Scan(&h.ID, &h.OrderID, &h.PreviousStatus, &h.NewStatus, &h.Note, &h.ChangedBy, &h.CreatedAt,
			&firstName, &lastName, &email); err != nil {
			return nil, err
		}
		if firstName != nil || lastName != nil {
			name := ptrString(firstName) + " " + ptrString(lastName)
			h.ChangedName = &name
		} else if email != nil {
			h.ChangedName = email
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
