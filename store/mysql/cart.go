package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/craftprint/storefront-api/models"
)

// Get returns the user's cart. A user without a cart row gets an empty cart
// at version 0.
func (s *Carts) Get(ctx context.Context, userID int64) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID}

	err := s.db.QueryRowContext(ctx,
		"SELECT version FROM carts WHERE user_id = ?", userID).Scan(&cart.Version)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load cart version: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, name, unit_price, quantity, image, size, color, selected_sizes, created_at
		FROM cart_items
		WHERE user_id = ?
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CartItem
		var sizes sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.Image,
			&item.Size,
			&item.Color,
			&sizes,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.SelectedSizes = unmarshalSizes(sizes)
		cart.Items = append(cart.Items, item)
	}
	return cart, rows.Err()
}

// Add merges the item into the cart inside one transaction: an existing line
// for the same product gains the quantity and takes the incoming variant
// attributes, otherwise a new line is inserted.
func (s *Carts) Add(ctx context.Context, userID int64, item models.CartItem) (*models.Cart, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add to cart: %w", err)
	}
	defer tx.Rollback()

	if err := ensureCart(ctx, tx, userID); err != nil {
		return nil, err
	}

	sizes, err := marshalJSON(item.SelectedSizes)
	if err != nil {
		return nil, err
	}

	var existingID string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM cart_items WHERE user_id = ? AND product_id = ?",
		userID, item.ProductID).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, user_id, product_id, name, unit_price, quantity, image, size, color, selected_sizes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), userID, item.ProductID, item.Name, item.UnitPrice,
			item.Quantity, item.Image, item.Size, item.Color, sizes)
		if err != nil {
			return nil, fmt.Errorf("insert cart item: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find cart item: %w", err)
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE cart_items
			SET quantity = quantity + ?, size = ?, color = ?, selected_sizes = ?
			WHERE id = ?`,
			item.Quantity, item.Size, item.Color, sizes, existingID)
		if err != nil {
			return nil, fmt.Errorf("merge cart item: %w", err)
		}
	}

	if err := bumpVersion(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add to cart: %w", err)
	}
	return s.Get(ctx, userID)
}

// UpdateQuantity sets a line's quantity. Quantities below 1 leave the cart
// untouched.
func (s *Carts) UpdateQuantity(ctx context.Context, userID int64, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return s.Get(ctx, userID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin quantity update: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE cart_items SET quantity = ? WHERE user_id = ? AND product_id = ?",
		quantity, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update quantity: %w", err)
	}
	if affected == 0 {
		// The row may exist with the same quantity already; distinguish
		// missing from unchanged.
		var n int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM cart_items WHERE user_id = ? AND product_id = ?",
			userID, productID).Scan(&n); err != nil {
			return nil, fmt.Errorf("check cart item: %w", err)
		}
		if n == 0 {
			return nil, models.ErrMissingItem
		}
	}

	if err := bumpVersion(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quantity update: %w", err)
	}
	return s.Get(ctx, userID)
}

// Remove deletes the line for the given product.
func (s *Carts) Remove(ctx context.Context, userID int64, productID string) (*models.Cart, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin remove from cart: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if affected == 0 {
		return nil, models.ErrMissingItem
	}

	if err := bumpVersion(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit remove from cart: %w", err)
	}
	return s.Get(ctx, userID)
}

// Clear removes every line from the user's cart.
func (s *Carts) Clear(ctx context.Context, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear cart: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if err := bumpVersion(ctx, tx, userID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear cart: %w", err)
	}
	return nil
}

// Replace swaps the entire cart contents, guarded by the version counter.
func (s *Carts) Replace(ctx context.Context, userID int64, version int64, items []models.CartItem) (*models.Cart, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cart replace: %w", err)
	}
	defer tx.Rollback()

	if err := ensureCart(ctx, tx, userID); err != nil {
		return nil, err
	}

	var current int64
	if err := tx.QueryRowContext(ctx,
		"SELECT version FROM carts WHERE user_id = ? FOR UPDATE", userID).Scan(&current); err != nil {
		return nil, fmt.Errorf("lock cart version: %w", err)
	}
	if current != version {
		return nil, models.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("replace cart, delete: %w", err)
	}
	for _, item := range items {
		sizes, err := marshalJSON(item.SelectedSizes)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, user_id, product_id, name, unit_price, quantity, image, size, color, selected_sizes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), userID, item.ProductID, item.Name, item.UnitPrice,
			item.Quantity, item.Image, item.Size, item.Color, sizes)
		if err != nil {
			return nil, fmt.Errorf("replace cart, insert: %w", err)
		}
	}

	if err := bumpVersion(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cart replace: %w", err)
	}
	return s.Get(ctx, userID)
}

// ensureCart creates the cart row on first use.
func ensureCart(ctx context.Context, tx *sql.Tx, userID int64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO carts (user_id, version) VALUES (?, 0) ON DUPLICATE KEY UPDATE user_id = user_id",
		userID)
	if err != nil {
		return fmt.Errorf("ensure cart row: %w", err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, userID int64) error {
	if err := ensureCart(ctx, tx, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE carts SET version = version + 1 WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("bump cart version: %w", err)
	}
	return nil
}
