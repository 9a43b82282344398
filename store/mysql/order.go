package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
)

const orderColumns = `id, order_number, user_id, subtotal, delivery_fee, total,
	shipping_address, payment_method, payment_details, transaction_id,
	status, cancellation_reason, created_at, updated_at`

// Create inserts a new pending order together with its frozen item snapshot.
// Returns store.ErrDuplicateOrderNumber on an order-number collision so the
// caller can regenerate and retry.
func (s *Orders) Create(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer tx.Rollback()

	addr, err := marshalAddress(order.ShippingAddress)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (order_number, user_id, subtotal, delivery_fee, total, shipping_address, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.OrderNumber, order.UserID, order.Subtotal, order.DeliveryFee, order.Total,
		addr, models.StatusPending)
	if err != nil {
		if isDuplicateEntry(err) {
			return store.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert order id: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		sizes, err := marshalJSON(item.SelectedSizes)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, image, size, color, selected_sizes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, item.ProductID, item.Name, item.UnitPrice, item.Quantity,
			item.Image, item.Size, item.Color, sizes)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
		item.OrderID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	order.ID = id
	order.Status = models.StatusPending
	return nil
}

// LatestPending returns the user's most recent order still in pending.
func (s *Orders) LatestPending(ctx context.Context, userID int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID, models.StatusPending)
	return s.loadOrder(ctx, row)
}

// ByID returns one order by its surrogate id.
func (s *Orders) ByID(ctx context.Context, id int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	return s.loadOrder(ctx, row)
}

// ByNumber returns one order by its human-readable number.
func (s *Orders) ByNumber(ctx context.Context, number string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE order_number = ?", number)
	return s.loadOrder(ctx, row)
}

// ListByUser returns the user's orders newest first, without item snapshots.
func (s *Orders) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.listOrders(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
}

// ListAll returns every order newest first, for the admin view.
func (s *Orders) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx,
		"SELECT " + orderColumns + " FROM orders ORDER BY created_at DESC, id DESC")
}

// SetShippingAddress attaches an address snapshot to a pending order.
func (s *Orders) SetShippingAddress(ctx context.Context, orderID int64, addr models.Address) error {
	snapshot, err := marshalAddress(&addr)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET shipping_address = ? WHERE id = ?", snapshot, orderID)
	if err != nil {
		return fmt.Errorf("set shipping address: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set shipping address: %w", err)
	}
	if affected == 0 {
		// Either missing or unchanged; only the former is an error.
		var n int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM orders WHERE id = ?", orderID).Scan(&n); err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if n == 0 {
			return models.ErrMissingOrder
		}
	}
	return nil
}

// SetTransaction records the chosen payment method and the gateway
// transaction reference ahead of external confirmation.
func (s *Orders) SetTransaction(ctx context.Context, orderID int64, method, transactionID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_method = ?, transaction_id = ? WHERE id = ?",
		method, transactionID, orderID)
	if err != nil {
		return fmt.Errorf("set transaction: %w", err)
	}
	return nil
}

// Finalize commits a checkout attempt in one transaction: payment fields,
// pending -> processing, the tracking entry, and the cart wipe all land
// together or not at all.
func (s *Orders) Finalize(ctx context.Context, orderID int64, method, details string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, status FROM orders WHERE id = ? FOR UPDATE", orderID).Scan(&userID, &status)
	if err == sql.ErrNoRows {
		return models.ErrMissingOrder
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}
	if status != models.StatusPending {
		return models.ErrAlreadyFinalized
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET payment_method = ?, payment_details = ?, status = ?
		WHERE id = ?`,
		method, details, models.StatusProcessing, orderID)
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_tracking (order_id, status, description)
		VALUES (?, ?, ?)`,
		orderID, models.StatusProcessing, "Payment confirmed, order is being prepared")
	if err != nil {
		return fmt.Errorf("append tracking entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if err := bumpVersion(ctx, tx, userID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finalize: %w", err)
	}
	return nil
}

// Transition applies a status change validated against the transition table
// and appends one tracking entry.
func (s *Orders) Transition(ctx context.Context, orderID int64, status, reason, location, description string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id = ? FOR UPDATE", orderID).Scan(&current)
	if err == sql.ErrNoRows {
		return models.ErrMissingOrder
	}
	if err != nil {
		return fmt.Errorf("lock order: %w", err)
	}

	if err := models.ValidateTransition(current, status, reason); err != nil {
		return err
	}

	if status == models.StatusCancelled {
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = ?, cancellation_reason = ? WHERE id = ?",
			status, reason, orderID)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = ? WHERE id = ?", status, orderID)
	}
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_tracking (order_id, status, location, description)
		VALUES (?, ?, ?, ?)`,
		orderID, status, location, description); err != nil {
		return fmt.Errorf("append tracking entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// History returns the order's tracking entries oldest first.
func (s *Orders) History(ctx context.Context, orderID int64) ([]models.TrackingEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, status, location, description, created_at
		FROM order_tracking
		WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load tracking history: %w", err)
	}
	defer rows.Close()

	var events []models.TrackingEvent
	for rows.Next() {
		var ev models.TrackingEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.Status, &ev.Location, &ev.Description, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tracking entry: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Orders) loadOrder(ctx context.Context, row *sql.Row) (*models.Order, error) {
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrMissingOrder
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, name, unit_price, quantity, image, size, color, selected_sizes
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		var sizes sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.Image,
			&item.Size,
			&item.Color,
			&sizes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.SelectedSizes = unmarshalSizes(sizes)
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (s *Orders) listOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var addr, details, txn, reason sql.NullString
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Subtotal,
		&order.DeliveryFee,
		&order.Total,
		&addr,
		&order.PaymentMethod,
		&details,
		&txn,
		&order.Status,
		&reason,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	if addr.Valid && addr.String != "" {
		var a models.Address
		if err := json.Unmarshal([]byte(addr.String), &a); err == nil {
			order.ShippingAddress = &a
		}
	}
	order.PaymentDetails = details.String
	order.TransactionID = txn.String
	order.CancellationReason = reason.String
	return &order, nil
}

func marshalAddress(addr *models.Address) (sql.NullString, error) {
	if addr == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(addr)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal shipping address: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
