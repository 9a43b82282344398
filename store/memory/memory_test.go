package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
)

func TestCarts(t *testing.T) {
	ctx := context.Background()

	t.Run("adding the same product merges lines", func(t *testing.T) {
		s := New()

		_, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 2, Size: "M"})
		require.NoError(t, err)
		cart, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 1, Size: "L"})
		require.NoError(t, err)

		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity)
		assert.Equal(t, "L", cart.Items[0].Size)
	})

	t.Run("every mutation bumps the version", func(t *testing.T) {
		s := New()

		cart, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), cart.Version)

		cart, err = s.Carts.UpdateQuantity(ctx, 1, "tee-1", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(2), cart.Version)

		cart, err = s.Carts.Remove(ctx, 1, "tee-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), cart.Version)

		require.NoError(t, s.Carts.Clear(ctx, 1))
		cart, err = s.Carts.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(4), cart.Version)
	})

	t.Run("replace enforces the version", func(t *testing.T) {
		s := New()

		cart, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 1})
		require.NoError(t, err)

		_, err = s.Carts.Replace(ctx, 1, cart.Version-1, nil)
		assert.ErrorIs(t, err, models.ErrVersionConflict)

		replaced, err := s.Carts.Replace(ctx, 1, cart.Version, []models.CartItem{
			{ProductID: "mug-1", Name: "Mug", UnitPrice: 10, Quantity: 2},
		})
		require.NoError(t, err)
		require.Len(t, replaced.Items, 1)
		assert.Equal(t, "mug-1", replaced.Items[0].ProductID)
		assert.Equal(t, cart.Version+1, replaced.Version)
	})

	t.Run("quantity below one leaves the cart untouched", func(t *testing.T) {
		s := New()

		cart, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 2})
		require.NoError(t, err)

		unchanged, err := s.Carts.UpdateQuantity(ctx, 1, "tee-1", 0)
		require.NoError(t, err)
		assert.Equal(t, cart.Version, unchanged.Version)
		assert.Equal(t, 2, unchanged.Items[0].Quantity)
	})

	t.Run("missing product errors", func(t *testing.T) {
		s := New()
		_, err := s.Carts.UpdateQuantity(ctx, 1, "nope", 3)
		assert.ErrorIs(t, err, models.ErrMissingItem)
		_, err = s.Carts.Remove(ctx, 1, "nope")
		assert.ErrorIs(t, err, models.ErrMissingItem)
	})
}

func addr(name string, isDefault bool) models.AddressInput {
	return models.AddressInput{
		Name: name, Street: "1 Main St", City: "Springfield",
		State: "IL", Zipcode: "62701", Country: "US", Phone: "555-0100",
		IsDefault: isDefault,
	}
}

func TestAddresses(t *testing.T) {
	ctx := context.Background()

	defaults := func(t *testing.T, s *Store, userID int64) []int64 {
		t.Helper()
		list, err := s.Addresses.List(ctx, userID)
		require.NoError(t, err)
		var ids []int64
		for _, a := range list {
			if a.IsDefault {
				ids = append(ids, a.ID)
			}
		}
		return ids
	}

	t.Run("first address becomes the default", func(t *testing.T) {
		s := New()
		first, err := s.Addresses.Add(ctx, 1, addr("Home", false))
		require.NoError(t, err)
		assert.True(t, first.IsDefault)
	})

	t.Run("at most one default at any time", func(t *testing.T) {
		s := New()
		first, err := s.Addresses.Add(ctx, 1, addr("Home", false))
		require.NoError(t, err)
		second, err := s.Addresses.Add(ctx, 1, addr("Office", true))
		require.NoError(t, err)

		assert.Equal(t, []int64{second.ID}, defaults(t, s, 1))

		require.NoError(t, s.Addresses.SetDefault(ctx, 1, first.ID))
		assert.Equal(t, []int64{first.ID}, defaults(t, s, 1))
	})

	t.Run("deleting the default promotes the latest remaining address", func(t *testing.T) {
		s := New()
		_, err := s.Addresses.Add(ctx, 1, addr("Home", false))
		require.NoError(t, err)
		second, err := s.Addresses.Add(ctx, 1, addr("Office", false))
		require.NoError(t, err)
		third, err := s.Addresses.Add(ctx, 1, addr("Studio", true))
		require.NoError(t, err)

		require.NoError(t, s.Addresses.Remove(ctx, 1, third.ID))
		assert.Equal(t, []int64{second.ID}, defaults(t, s, 1))
	})

	t.Run("deleting a non-default changes nothing", func(t *testing.T) {
		s := New()
		first, err := s.Addresses.Add(ctx, 1, addr("Home", false))
		require.NoError(t, err)
		second, err := s.Addresses.Add(ctx, 1, addr("Office", false))
		require.NoError(t, err)

		require.NoError(t, s.Addresses.Remove(ctx, 1, second.ID))
		assert.Equal(t, []int64{first.ID}, defaults(t, s, 1))
	})

	t.Run("addresses are scoped per user", func(t *testing.T) {
		s := New()
		mine, err := s.Addresses.Add(ctx, 1, addr("Home", false))
		require.NoError(t, err)

		_, err = s.Addresses.Get(ctx, 2, mine.ID)
		assert.ErrorIs(t, err, models.ErrMissingAddress)
		err = s.Addresses.Remove(ctx, 2, mine.ID)
		assert.ErrorIs(t, err, models.ErrMissingAddress)
	})
}

func TestOrders(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, s *Store, userID int64, number string) *models.Order {
		t.Helper()
		order := &models.Order{
			OrderNumber: number,
			UserID:      userID,
			Items:       []models.OrderItem{{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 1}},
			Subtotal:    20, DeliveryFee: 10, Total: 30,
		}
		require.NoError(t, s.Orders.Create(ctx, order))
		return order
	}

	t.Run("duplicate order number is rejected", func(t *testing.T) {
		s := New()
		create(t, s, 1, "CP-000001-1")
		err := s.Orders.Create(ctx, &models.Order{OrderNumber: "CP-000001-1", UserID: 2})
		assert.ErrorIs(t, err, store.ErrDuplicateOrderNumber)
	})

	t.Run("latest pending picks the newest pending order", func(t *testing.T) {
		s := New()
		create(t, s, 1, "CP-000001-1")
		second := create(t, s, 1, "CP-000002-2")

		latest, err := s.Orders.LatestPending(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)

		_, err = s.Orders.LatestPending(ctx, 2)
		assert.ErrorIs(t, err, models.ErrMissingOrder)
	})

	t.Run("finalize moves to processing, records an event, clears the cart", func(t *testing.T) {
		s := New()
		_, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 1})
		require.NoError(t, err)
		order := create(t, s, 1, "CP-000001-1")

		require.NoError(t, s.Orders.Finalize(ctx, order.ID, models.PaymentCashOnDelivery, "{}"))

		final, err := s.Orders.ByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, final.Status)

		cart, err := s.Carts.Get(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)

		history, err := s.Orders.History(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.StatusProcessing, history[0].Status)
	})

	t.Run("finalize twice errors and touches nothing", func(t *testing.T) {
		s := New()
		order := create(t, s, 1, "CP-000001-1")
		require.NoError(t, s.Orders.Finalize(ctx, order.ID, models.PaymentCashOnDelivery, "{}"))

		// The user starts shopping again; a late duplicate finalize must not
		// wipe the new cart.
		_, err := s.Carts.Add(ctx, 1, models.CartItem{ProductID: "mug-1", Name: "Mug", UnitPrice: 10, Quantity: 1})
		require.NoError(t, err)

		err = s.Orders.Finalize(ctx, order.ID, models.PaymentCashOnDelivery, "{}")
		assert.ErrorIs(t, err, models.ErrAlreadyFinalized)

		cart, err := s.Carts.Get(ctx, 1)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, "mug-1", cart.Items[0].ProductID)

		history, err := s.Orders.History(ctx, order.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("transition enforces the table and appends history", func(t *testing.T) {
		s := New()
		order := create(t, s, 1, "CP-000001-1")
		require.NoError(t, s.Orders.Finalize(ctx, order.ID, models.PaymentCashOnDelivery, "{}"))

		err := s.Orders.Transition(ctx, order.ID, models.StatusDelivered, "", "", "")
		var invalid *models.InvalidTransitionError
		assert.ErrorAs(t, err, &invalid)

		require.NoError(t, s.Orders.Transition(ctx, order.ID, models.StatusShipped, "", "Chicago hub", "Left the print shop"))
		require.NoError(t, s.Orders.Transition(ctx, order.ID, models.StatusOutForDelivery, "", "Springfield", ""))
		require.NoError(t, s.Orders.Transition(ctx, order.ID, models.StatusDelivered, "", "", ""))

		history, err := s.Orders.History(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.Equal(t, models.StatusProcessing, history[0].Status)
		assert.Equal(t, models.StatusDelivered, history[3].Status)
	})

	t.Run("cancellation stores the reason", func(t *testing.T) {
		s := New()
		order := create(t, s, 1, "CP-000001-1")

		err := s.Orders.Transition(ctx, order.ID, models.StatusCancelled, "", "", "")
		assert.ErrorIs(t, err, models.ErrReasonRequired)

		require.NoError(t, s.Orders.Transition(ctx, order.ID, models.StatusCancelled, "out of stock", "", ""))
		cancelled, err := s.Orders.ByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "out of stock", cancelled.CancellationReason)
	})

	t.Run("listings are newest first", func(t *testing.T) {
		s := New()
		create(t, s, 1, "CP-000001-1")
		create(t, s, 2, "CP-000002-2")
		create(t, s, 1, "CP-000003-3")

		mine, err := s.Orders.ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "CP-000003-3", mine[0].OrderNumber)

		all, err := s.Orders.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
