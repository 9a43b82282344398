// Package store defines the persistence contracts for the storefront
// lifecycle. Implementations live in store/mysql (production) and
// store/memory (tests).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/craftprint/storefront-api/models"
)

// ErrDuplicateOrderNumber is returned by OrderStore.Create when the generated
// order number collides with an existing one. Callers regenerate and retry.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// CartStore holds one cart per user. Every mutation bumps the cart's version
// counter; Replace rejects writes that present a stale version.
type CartStore interface {
	// Get returns the user's cart. A user with no cart rows gets an empty
	// cart at version 0.
	Get(ctx context.Context, userID int64) (*models.Cart, error)

	// Add merges the item into the cart: an existing line for the same
	// product gains the quantity and takes the incoming variant attributes,
	// otherwise a new line is appended.
	Add(ctx context.Context, userID int64, item models.CartItem) (*models.Cart, error)

	// UpdateQuantity sets a line's quantity. Quantities below 1 leave the
	// cart untouched; removal is an explicit separate operation.
	UpdateQuantity(ctx context.Context, userID int64, productID string, quantity int) (*models.Cart, error)

	// Remove deletes the line for the given product.
	Remove(ctx context.Context, userID int64, productID string) (*models.Cart, error)

	// Clear removes every line from the user's cart.
	Clear(ctx context.Context, userID int64) error

	// Replace swaps the entire cart contents in one write, but only if
	// version matches the stored one; otherwise ErrVersionConflict.
	Replace(ctx context.Context, userID int64, version int64, items []models.CartItem) (*models.Cart, error)
}

// AddressBook is CRUD over a user's shipping addresses with the
// single-default invariant: a user with at least one address has exactly
// one default.
type AddressBook interface {
	List(ctx context.Context, userID int64) ([]models.Address, error)
	Get(ctx context.Context, userID, id int64) (*models.Address, error)

	// Add saves a new address. The user's first address is forced default;
	// an explicit default flips all others off in the same transaction.
	Add(ctx context.Context, userID int64, in models.AddressInput) (*models.Address, error)

	// Update rewrites an address; requesting default flips others off
	// atomically.
	Update(ctx context.Context, userID, id int64, in models.AddressInput) (*models.Address, error)

	// SetDefault makes the target the user's only default address.
	SetDefault(ctx context.Context, userID, id int64) error

	// Remove deletes an address. If the default was deleted, the most
	// recently created remaining address is promoted.
	Remove(ctx context.Context, userID, id int64) error
}

// OrderStore persists orders, their frozen item snapshots, and the
// append-only tracking history.
type OrderStore interface {
	// Create inserts a new order in status pending together with its item
	// snapshot. Returns ErrDuplicateOrderNumber on an order-number collision.
	Create(ctx context.Context, order *models.Order) error

	// LatestPending returns the user's most recent order still in pending,
	// or ErrMissingOrder when there is none.
	LatestPending(ctx context.Context, userID int64) (*models.Order, error)

	ByID(ctx context.Context, id int64) (*models.Order, error)
	ByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)

	// SetShippingAddress attaches an address snapshot to a pending order.
	SetShippingAddress(ctx context.Context, orderID int64, addr models.Address) error

	// SetTransaction records the chosen payment method and the gateway's
	// transaction reference before the external round-trip completes.
	SetTransaction(ctx context.Context, orderID int64, method, transactionID string) error

	// Finalize is the commit point of a checkout attempt: in one
	// transaction it writes the payment method and details, moves the order
	// pending -> processing, appends the tracking entry, and clears the
	// owner's cart. An order no longer pending yields ErrAlreadyFinalized
	// and nothing changes.
	Finalize(ctx context.Context, orderID int64, method, details string) error

	// Transition applies a status change validated against the transition
	// table and appends one tracking entry. Cancellation stores the reason.
	Transition(ctx context.Context, orderID int64, status, reason, location, description string) error

	// History returns the order's tracking entries oldest first.
	History(ctx context.Context, orderID int64) ([]models.TrackingEvent, error)
}

// OutboxEntry is a durable record of an outbound side effect that must not
// be lost if the process dies before delivery.
type OutboxEntry struct {
	ID            string
	Kind          string
	Payload       string
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}

// OutboxStore is the write-ahead queue for outbound notifications (gateway
// cancellations and the like). The worker drains due entries and retries
// failures with backoff.
type OutboxStore interface {
	Enqueue(ctx context.Context, kind, payload string) error
	Due(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, attempts int, next time.Time) error
}
