// Package mysql implements the store contracts on top of a MySQL database
// accessed through database/sql.
package mysql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Store bundles the per-concern repositories over a shared *sql.DB.
type Store struct {
	Carts     *Carts
	Addresses *Addresses
	Orders    *Orders
	Outbox    *Outbox
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{
		Carts:     &Carts{db: db},
		Addresses: &Addresses{db: db},
		Orders:    &Orders{db: db},
		Outbox:    &Outbox{db: db},
	}
}

// Carts implements store.CartStore.
type Carts struct {
	db *sql.DB
}

// Addresses implements store.AddressBook.
type Addresses struct {
	db *sql.DB
}

// Orders implements store.OrderStore.
type Orders struct {
	db *sql.DB
}

// Outbox implements store.OutboxStore.
type Outbox struct {
	db *sql.DB
}

// mysqlDuplicateEntry is the server error number for a unique-key violation.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// marshalJSON renders v as a TEXT column value, NULL for empty input.
func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	if s, ok := v.([]string); ok && len(s) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal json column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalSizes(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var sizes []string
	if err := json.Unmarshal([]byte(raw.String), &sizes); err != nil {
		return nil
	}
	return sizes
}
