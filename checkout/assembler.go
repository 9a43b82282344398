package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
)

// numberAttempts bounds the retry loop on order-number collisions.
const numberAttempts = 5

// Assembler materializes a pending order from the current cart, exactly once
// per checkout session: entering checkout twice without paying reuses the
// existing pending order instead of creating another.
type Assembler struct {
	carts     store.CartStore
	orders    store.OrderStore
	addresses store.AddressBook

	prefix      string
	deliveryFee float64

	// newNumber is swappable in tests to force collisions.
	newNumber func(prefix string) string
}

// NewAssembler wires the assembler to its stores.
func NewAssembler(carts store.CartStore, orders store.OrderStore, addresses store.AddressBook, prefix string, deliveryFee float64) *Assembler {
	return &Assembler{
		carts:       carts,
		orders:      orders,
		addresses:   addresses,
		prefix:      prefix,
		deliveryFee: deliveryFee,
		newNumber:   OrderNumber,
	}
}

// Assemble returns the user's pending order, creating one from the current
// cart if none exists. The cart must be non-empty for a new order; an
// existing pending order is returned as-is regardless of the cart.
func (a *Assembler) Assemble(ctx context.Context, userID int64) (*models.Order, error) {
	pending, err := a.orders.LatestPending(ctx, userID)
	if err == nil {
		return pending, nil
	}
	if !errors.Is(err, models.ErrMissingOrder) {
		return nil, fmt.Errorf("find pending order: %w", err)
	}

	cart, err := a.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, models.ErrEmptyCart
	}

	subtotal := cart.TotalPrice()
	order := &models.Order{
		UserID:      userID,
		Items:       models.SnapshotItems(cart.Items),
		Subtotal:    subtotal,
		DeliveryFee: a.deliveryFee,
		Total:       subtotal + a.deliveryFee,
	}

	for attempt := 0; attempt < numberAttempts; attempt++ {
		order.OrderNumber = a.newNumber(a.prefix)
		err = a.orders.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, store.ErrDuplicateOrderNumber) {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}
	return nil, fmt.Errorf("create order: %w", err)
}

// ShippingInput selects either a saved address or a new one to attach to the
// pending order.
type ShippingInput struct {
	AddressID *int64               `json:"address_id"`
	Address   *models.AddressInput `json:"address"`
}

// SetShipping resolves the chosen address, saving it first when the caller
// supplied a new one, and attaches its snapshot to the pending order.
func (a *Assembler) SetShipping(ctx context.Context, userID int64, orderNumber string, in ShippingInput) (*models.Order, error) {
	order, err := a.ownedPending(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}

	var addr *models.Address
	switch {
	case in.AddressID != nil:
		addr, err = a.addresses.Get(ctx, userID, *in.AddressID)
		if err != nil {
			return nil, err
		}
	case in.Address != nil:
		addr, err = a.addresses.Add(ctx, userID, *in.Address)
		if err != nil {
			return nil, fmt.Errorf("save shipping address: %w", err)
		}
	default:
		return nil, models.ErrMissingAddress
	}

	if err := a.orders.SetShippingAddress(ctx, order.ID, *addr); err != nil {
		return nil, fmt.Errorf("attach shipping address: %w", err)
	}
	return a.orders.ByID(ctx, order.ID)
}

// ownedPending loads an order by number and checks ownership and that it is
// still pending.
func (a *Assembler) ownedPending(ctx context.Context, userID int64, orderNumber string) (*models.Order, error) {
	order, err := a.orders.ByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrMissingOrder
	}
	if order.Status != models.StatusPending {
		return nil, models.ErrAlreadyFinalized
	}
	return order, nil
}
