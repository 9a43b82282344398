package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/craftprint/storefront-api/models"
)

const addressColumns = "id, user_id, name, street, city, state, zipcode, country, phone, is_default, created_at"

// List returns the user's addresses, default first, newest next.
func (s *Addresses) List(ctx context.Context, userID int64) ([]models.Address, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE user_id = ?
		ORDER BY is_default DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	var addresses []models.Address
	for rows.Next() {
		addr, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, *addr)
	}
	return addresses, rows.Err()
}

// Get returns one address owned by the user.
func (s *Addresses) Get(ctx context.Context, userID, id int64) (*models.Address, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE id = ? AND user_id = ?`, id, userID)
	addr, err := scanAddress(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrMissingAddress
	}
	return addr, err
}

// Add saves a new address. The user's first address is forced default; an
// explicit default flips all others off in the same transaction.
func (s *Addresses) Add(ctx context.Context, userID int64, in models.AddressInput) (*models.Address, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add address: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM addresses WHERE user_id = ?", userID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("count addresses: %w", err)
	}

	isDefault := in.IsDefault || existing == 0
	if isDefault && existing > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE addresses SET is_default = 0 WHERE user_id = ?", userID); err != nil {
			return nil, fmt.Errorf("unset default addresses: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO addresses (user_id, name, street, city, state, zipcode, country, phone, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Name, in.Street, in.City, in.State, in.Zipcode, in.Country, in.Phone, isDefault)
	if err != nil {
		return nil, fmt.Errorf("insert address: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert address id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add address: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// Update rewrites an address owned by the user.
func (s *Addresses) Update(ctx context.Context, userID, id int64, in models.AddressInput) (*models.Address, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update address: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM addresses WHERE id = ? AND user_id = ?", id, userID).Scan(&count); err != nil {
		return nil, fmt.Errorf("check address: %w", err)
	}
	if count == 0 {
		return nil, models.ErrMissingAddress
	}

	if in.IsDefault {
		if _, err := tx.ExecContext(ctx,
			"UPDATE addresses SET is_default = 0 WHERE user_id = ? AND id != ?", userID, id); err != nil {
			return nil, fmt.Errorf("unset default addresses: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE addresses
		SET name = ?, street = ?, city = ?, state = ?, zipcode = ?, country = ?, phone = ?, is_default = ?
		WHERE id = ? AND user_id = ?`,
		in.Name, in.Street, in.City, in.State, in.Zipcode, in.Country, in.Phone, in.IsDefault,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update address: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// SetDefault makes the target the user's only default address.
func (s *Addresses) SetDefault(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM addresses WHERE id = ? AND user_id = ?", id, userID).Scan(&count); err != nil {
		return fmt.Errorf("check address: %w", err)
	}
	if count == 0 {
		return models.ErrMissingAddress
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE addresses SET is_default = 0 WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("unset default addresses: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE addresses SET is_default = 1 WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("set default address: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set default: %w", err)
	}
	return nil
}

// Remove deletes an address. If the default was deleted, the most recently
// created remaining address is promoted so the single-default invariant
// holds whenever the user still has addresses.
func (s *Addresses) Remove(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove address: %w", err)
	}
	defer tx.Rollback()

	var wasDefault bool
	err = tx.QueryRowContext(ctx,
		"SELECT is_default FROM addresses WHERE id = ? AND user_id = ?", id, userID).Scan(&wasDefault)
	if err == sql.ErrNoRows {
		return models.ErrMissingAddress
	}
	if err != nil {
		return fmt.Errorf("check address: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM addresses WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	if wasDefault {
		if _, err := tx.ExecContext(ctx, `
			UPDATE addresses SET is_default = 1
			WHERE user_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT 1`, userID); err != nil {
			return fmt.Errorf("promote default address: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove address: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*models.Address, error) {
	var addr models.Address
	err := row.Scan(
		&addr.ID,
		&addr.UserID,
		&addr.Name,
		&addr.Street,
		&addr.City,
		&addr.State,
		&addr.Zipcode,
		&addr.Country,
		&addr.Phone,
		&addr.IsDefault,
		&addr.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return &addr, nil
}
