package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type postgresOrderRepository struct {
	db          *sql.DB
	log         *logrus.Logger
	lockTimeout time.Duration
}

func NewPostgresOrderRepository(db *sql.DB, lockTimeout time.Duration, logger *logrus.Logger) domain.OrderRepository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &postgresOrderRepository{
		db:          db,
		log:         logger,
		lockTimeout: lockTimeout,
	}
}

// PlaceOrder runs the whole fulfillment inside one transaction: referenced
// entity checks, the conditional stock decrement for every line item, the
// order and item inserts, and the idempotency-key record. Either everything
// commits or nothing does.
func (r *postgresOrderRepository) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (*domain.PlacedOrder, error) {
	if req.IdempotencyKey != "" {
		placed, found, err := r.lookupProcessed(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if found {
			r.log.Infof("Repository: Idempotency key '%s' already processed (order %d), skipping creation", req.IdempotencyKey, placed.Order.ID)
			return placed, nil
		}
	}

	placed, err := r.placeOrderTx(ctx, req)
	if err != nil && req.IdempotencyKey != "" && pqCode(err, pqUniqueViolation) {
		// Lost the race against a concurrent request carrying the same key.
		r.log.Warnf("Repository: Concurrent duplicate for idempotency key '%s', returning winner's order", req.IdempotencyKey)
		replay, found, lookupErr := r.lookupProcessed(ctx, req.IdempotencyKey)
		if lookupErr == nil && found {
			return replay, nil
		}
		return nil, err
	}
	return placed, err
}

func (r *postgresOrderRepository) lookupProcessed(ctx context.Context, key string) (*domain.PlacedOrder, bool, error) {
	var orderID int64
	err := r.db.QueryRowContext(ctx, `SELECT order_id FROM order_requests WHERE request_key = $1`, key).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if terr := asTransient("lookup idempotency key", err); terr != nil {
			return nil, false, terr
		}
		r.log.Errorf("Repository: Failed to look up idempotency key '%s': %v", key, err)
		return nil, false, fmt.Errorf("could not look up idempotency key: %w", err)
	}

	order, err := r.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	return &domain.PlacedOrder{Order: order, AlreadyProcessed: true}, true, nil
}

func (r *postgresOrderRepository) placeOrderTx(ctx context.Context, req domain.PlaceOrderRequest) (placed *domain.PlacedOrder, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Errorf("Repository: Failed to begin order transaction: %v", err)
		if terr := asTransient("begin order transaction", err); terr != nil {
			return nil, terr
		}
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Repository: Recovered from panic, rolling back order transaction")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.log.Warnf("Repository: Rolling back order transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Repository: Failed to rollback order transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				r.log.Errorf("Repository: Failed to commit order transaction: %v", cErr)
				err = fmt.Errorf("failed to commit order transaction: %w", cErr)
				placed = nil
			}
		}
	}()

	// Bounds every row-lock wait inside this transaction; a timeout surfaces
	// as a retryable error instead of blocking the caller indefinitely.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return nil, fmt.Errorf("could not set lock timeout: %w", err)
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, req.UserID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order rejected, user %d not found", req.UserID)
			err = &domain.NotFoundError{Entity: "user", ID: req.UserID}
			return nil, err
		}
		return nil, r.wrapOrderErr("check user", err)
	}

	err = tx.QueryRowContext(ctx, `SELECT 1 FROM addresses WHERE id = $1`, req.AddressID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order rejected, address %d not found", req.AddressID)
			err = &domain.NotFoundError{Entity: "address", ID: req.AddressID}
			return nil, err
		}
		return nil, r.wrapOrderErr("check address", err)
	}

	// Check-and-decrement in one conditional update per line item. Zero
	// affected rows means either a missing product or not enough stock;
	// both abort the whole order.
	decrementQuery := `
        UPDATE products
        SET stock_quantity = stock_quantity - $2
        WHERE id = $1 AND stock_quantity >= $2
        RETURNING id, name, price, stock_quantity`

	snapshots := make(map[int64]domain.ProductSnapshot)
	items := make([]domain.OrderItem, 0, len(req.Items))
	totalPrice := 0.0

	for _, item := range req.Items {
		var snap domain.ProductSnapshot
		err = tx.QueryRowContext(ctx, decrementQuery, item.ProductID, item.Quantity).Scan(
			&snap.ID,
			&snap.Name,
			&snap.Price,
			&snap.StockQuantity,
		)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = r.explainFailedDecrement(ctx, tx, item)
				return nil, err
			}
			return nil, r.wrapOrderErr(fmt.Sprintf("decrement stock for product %d", item.ProductID), err)
		}

		snapshots[snap.ID] = snap
		items = append(items, domain.OrderItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: snap.Price,
		})
		totalPrice += float64(item.Quantity) * snap.Price
		r.log.Infof("Repository: Stock decremented for product %d by %d (remaining: %d)", snap.ID, item.Quantity, snap.StockQuantity)
	}

	order := &domain.Order{
		UserID:     req.UserID,
		AddressID:  req.AddressID,
		Status:     domain.StatusPending,
		TotalPrice: totalPrice,
	}

	orderQuery := `
        INSERT INTO orders (user_id, address_id, status, total_price)
        VALUES ($1, $2, $3, $4)
        RETURNING id, status, created_at, updated_at`
	err = tx.QueryRowContext(ctx, orderQuery, order.UserID, order.AddressID, order.Status, order.TotalPrice).Scan(
		&order.ID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to insert order for user %d: %v", order.UserID, err)
		return nil, r.wrapOrderErr("create order entry", err)
	}

	itemQuery := `
        INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	stmt, err := tx.PrepareContext(ctx, itemQuery)
	if err != nil {
		r.log.Errorf("Repository: Failed to prepare order item statement: %v", err)
		return nil, fmt.Errorf("could not prepare item statement: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		items[i].OrderID = order.ID
		err = stmt.QueryRowContext(ctx, order.ID, items[i].ProductID, items[i].Quantity, items[i].PriceAtPurchase).Scan(&items[i].ID)
		if err != nil {
			r.log.Errorf("Repository: Failed to insert order item (product_id: %d) for order %d: %v", items[i].ProductID, order.ID, err)
			return nil, r.wrapOrderErr(fmt.Sprintf("create order item (product %d)", items[i].ProductID), err)
		}
	}
	order.Items = items

	if req.IdempotencyKey != "" {
		_, err = tx.ExecContext(ctx, `INSERT INTO order_requests (request_key, order_id) VALUES ($1, $2)`, req.IdempotencyKey, order.ID)
		if err != nil {
			// A unique violation here is handled by the caller as a replay.
			return nil, err
		}
	}

	productStates := make([]domain.ProductSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		productStates = append(productStates, snap)
	}

	r.log.Infof("Repository: Order %d created successfully with %d items, total %.2f", order.ID, len(order.Items), order.TotalPrice)
	return &domain.PlacedOrder{Order: order, Products: productStates}, nil
}

// explainFailedDecrement distinguishes a missing product from insufficient
// stock after a conditional update touched no rows.
func (r *postgresOrderRepository) explainFailedDecrement(ctx context.Context, tx *sql.Tx, item domain.OrderItemRequest) error {
	var available int
	err := tx.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = $1`, item.ProductID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order rejected, product %d not found", item.ProductID)
			return &domain.NotFoundError{Entity: "product", ID: item.ProductID}
		}
		return r.wrapOrderErr("inspect product stock", err)
	}

	r.log.Warnf("Repository: Order rejected, insufficient stock for product %d (requested: %d, available: %d)", item.ProductID, item.Quantity, available)
	return &domain.InsufficientStockError{
		ProductID: item.ProductID,
		Requested: item.Quantity,
		Available: available,
	}
}

func (r *postgresOrderRepository) wrapOrderErr(op string, err error) error {
	if terr := asTransient(op, err); terr != nil {
		r.log.Warnf("Repository: Transient failure during %s: %v", op, err)
		return terr
	}
	return fmt.Errorf("could not %s: %w", op, err)
}

func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	order := &domain.Order{}
	orderQuery := `
        SELECT id, user_id, address_id, status, total_price, created_at, updated_at
        FROM orders
        WHERE id = $1`

	err := r.db.QueryRowContext(ctx, orderQuery, id).Scan(
		&order.ID,
		&order.UserID,
		&order.AddressID,
		&order.Status,
		&order.TotalPrice,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order with ID %d not found", id)
			return nil, &domain.NotFoundError{Entity: "order", ID: id}
		}
		if terr := asTransient("get order", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	r.log.Debugf("Repository: Order %d retrieved with %d items", order.ID, len(order.Items))
	return order, nil
}

func (r *postgresOrderRepository) getOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	itemsQuery := `
        SELECT id, order_id, product_id, quantity, price_at_purchase
        FROM order_items
        WHERE order_id = $1
        ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, itemsQuery, orderID)
	if err != nil {
		r.log.Errorf("Repository: Failed to query order items for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			r.log.Errorf("Repository: Failed to scan order item row for order ID %d: %v", orderID, err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during order items iteration for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *postgresOrderRepository) GetOrdersByFilter(ctx context.Context, count, page int, filter domain.OrderFilter) ([]domain.Order, error) {
	limit, offset := normalizePage(count, page)

	query := `
        SELECT id, user_id, address_id, status, total_price, created_at, updated_at
        FROM orders`
	args := []interface{}{}
	conditions := []string{}

	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if terr := asTransient("list orders", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to list orders (limit %d, offset %d): %v", limit, offset, err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	orderIDs := []int64{}
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.AddressID,
			&order.Status,
			&order.TotalPrice,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			r.log.Errorf("Repository: Failed to scan order row: %v", err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during orders iteration: %v", err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	itemsQuery := `
        SELECT id, order_id, product_id, quantity, price_at_purchase
        FROM order_items
        WHERE order_id = ANY($1::bigint[])
        ORDER BY order_id, id`

	itemRows, err := r.db.QueryContext(ctx, itemsQuery, pq.Array(orderIDs))
	if err != nil {
		r.log.Errorf("Repository: Failed to query items for orders %v: %v", orderIDs, err)
		return nil, fmt.Errorf("could not retrieve order items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int64][]domain.OrderItem)
	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			r.log.Errorf("Repository: Failed to scan order item row during multi-order fetch: %v", err)
			return nil, fmt.Errorf("error scanning order item data for list: %w", err)
		}
		itemsMap[item.OrderID] = append(itemsMap[item.OrderID], item)
	}
	if err = itemRows.Err(); err != nil {
		r.log.Errorf("Repository: Error during multi-order items iteration: %v", err)
		return nil, fmt.Errorf("error iterating order items for list: %w", err)
	}

	for i := range orders {
		if items, ok := itemsMap[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	r.log.Infof("Repository: Retrieved %d orders (limit: %d, offset: %d)", len(orders), limit, offset)
	return orders, nil
}

func (r *postgresOrderRepository) CountOrders(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(id) FROM orders`).Scan(&total)
	if err != nil {
		if terr := asTransient("count orders", err); terr != nil {
			return 0, terr
		}
		r.log.Errorf("Repository: Failed to count orders: %v", err)
		return 0, fmt.Errorf("could not count orders: %w", err)
	}
	return total, nil
}

func (r *postgresOrderRepository) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET status = $1, updated_at = NOW()
        WHERE id = $2
        RETURNING id, user_id, address_id, status, total_price, created_at, updated_at`

	order := &domain.Order{}
	err := r.db.QueryRowContext(ctx, query, status, id).Scan(
		&order.ID,
		&order.UserID,
		&order.AddressID,
		&order.Status,
		&order.TotalPrice,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order with ID %d not found for status update", id)
			return nil, &domain.NotFoundError{Entity: "order", ID: id}
		}
		if pqCode(err, pqCheckViolation) {
			r.log.Warnf("Repository: Invalid status value '%s' for order ID %d", status, id)
			return nil, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("invalid order status: %s", status)}
		}
		if terr := asTransient("update order status", err); terr != nil {
			return nil, terr
		}
		r.log.Errorf("Repository: Failed to update status for order ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update order status: %w", err)
	}

	items, err := r.getOrderItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order status updated, but failed to retrieve items: %w", err)
	}
	order.Items = items

	r.log.Infof("Repository: Order %d status updated to '%s'", order.ID, order.Status)
	return order, nil
}
