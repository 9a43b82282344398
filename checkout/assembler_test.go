package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store/memory"
)

func seedCart(t *testing.T, s *memory.Store, userID int64) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Carts.Add(ctx, userID, models.CartItem{
		ProductID: "tee-1", Name: "Custom Tee", UnitPrice: 20, Quantity: 2,
	})
	require.NoError(t, err)
	_, err = s.Carts.Add(ctx, userID, models.CartItem{
		ProductID: "mug-1", Name: "Custom Mug", UnitPrice: 10, Quantity: 1,
	})
	require.NoError(t, err)
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending order from the cart", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		order, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, models.StatusPending, order.Status)
		assert.NotEmpty(t, order.OrderNumber)
		assert.Len(t, order.Items, 2)
		assert.Equal(t, 50.0, order.Subtotal)
		assert.Equal(t, 10.0, order.DeliveryFee)
		assert.Equal(t, 60.0, order.Total)
	})

	t.Run("entering checkout twice reuses the pending order", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		first, err := a.Assemble(ctx, 1)
		require.NoError(t, err)
		second, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.OrderNumber, second.OrderNumber)
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		s := memory.New()
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		_, err := a.Assemble(ctx, 1)
		assert.ErrorIs(t, err, models.ErrEmptyCart)
	})

	t.Run("order items are a frozen snapshot of the cart", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		order, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		_, err = s.Carts.UpdateQuantity(ctx, 1, "tee-1", 50)
		require.NoError(t, err)

		reloaded, err := s.Orders.ByID(ctx, order.ID)
		require.NoError(t, err)
		for _, item := range reloaded.Items {
			if item.ProductID == "tee-1" {
				assert.Equal(t, 2, item.Quantity)
			}
		}
		assert.Equal(t, 60.0, reloaded.Total)
	})

	t.Run("retries on order number collision", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		seedCart(t, s, 2)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		numbers := []string{"CP-000001-1", "CP-000001-1", "CP-000002-2"}
		calls := 0
		a.newNumber = func(prefix string) string {
			n := numbers[calls%len(numbers)]
			calls++
			return n
		}

		first, err := a.Assemble(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "CP-000001-1", first.OrderNumber)

		second, err := a.Assemble(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "CP-000002-2", second.OrderNumber)
		assert.Equal(t, 3, calls)
	})
}

func TestSetShipping(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches a saved address", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		addr, err := s.Addresses.Add(ctx, 1, models.AddressInput{
			Name: "Jamie", Street: "1 Main St", City: "Springfield",
			State: "IL", Zipcode: "62701", Country: "US", Phone: "555-0100",
		})
		require.NoError(t, err)

		order, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		updated, err := a.SetShipping(ctx, 1, order.OrderNumber, ShippingInput{AddressID: &addr.ID})
		require.NoError(t, err)
		require.NotNil(t, updated.ShippingAddress)
		assert.Equal(t, "1 Main St", updated.ShippingAddress.Street)
	})

	t.Run("saves and attaches a new address", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		order, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		updated, err := a.SetShipping(ctx, 1, order.OrderNumber, ShippingInput{
			Address: &models.AddressInput{
				Name: "Jamie", Street: "1 Main St", City: "Springfield",
				State: "IL", Zipcode: "62701", Country: "US", Phone: "555-0100",
			},
		})
		require.NoError(t, err)
		require.NotNil(t, updated.ShippingAddress)

		saved, err := s.Addresses.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, saved, 1)
	})

	t.Run("neither id nor address is an error", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		order, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		_, err = a.SetShipping(ctx, 1, order.OrderNumber, ShippingInput{})
		assert.ErrorIs(t, err, models.ErrMissingAddress)
	})

	t.Run("another user's order is invisible", func(t *testing.T) {
		s := memory.New()
		seedCart(t, s, 1)
		a := NewAssembler(s.Carts, s.Orders, s.Addresses, "CP", 10)

		order, err := a.Assemble(ctx, 1)
		require.NoError(t, err)

		_, err = a.SetShipping(ctx, 2, order.OrderNumber, ShippingInput{})
		assert.ErrorIs(t, err, models.ErrMissingOrder)
	})
}
