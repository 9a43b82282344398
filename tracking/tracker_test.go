package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store/memory"
)

func seedOrder(t *testing.T, s *memory.Store) *models.Order {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{
		OrderNumber: "CP-000001-1",
		UserID:      1,
		Items:       []models.OrderItem{{ProductID: "tee-1", Name: "Tee", UnitPrice: 20, Quantity: 1}},
		Subtotal:    20, DeliveryFee: 10, Total: 30,
	}
	require.NoError(t, s.Orders.Create(ctx, order))
	require.NoError(t, s.Orders.Finalize(ctx, order.ID, models.PaymentCashOnDelivery, "{}"))
	return order
}

func TestTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the view without a cache", func(t *testing.T) {
		s := memory.New()
		order := seedOrder(t, s)
		tracker := New(s.Orders, nil, time.Minute)

		view, err := tracker.Track(ctx, order.OrderNumber)
		require.NoError(t, err)

		assert.Equal(t, order.OrderNumber, view.OrderNumber)
		assert.Equal(t, order.OrderNumber, view.TrackingNumber)
		assert.Equal(t, models.StatusProcessing, view.Status)
		assert.Equal(t, models.BucketProcessing, view.Bucket)
		require.Len(t, view.History, 1)
	})

	t.Run("estimated delivery is five days from creation", func(t *testing.T) {
		s := memory.New()
		order := seedOrder(t, s)
		tracker := New(s.Orders, nil, time.Minute)

		view, err := tracker.Track(ctx, order.OrderNumber)
		require.NoError(t, err)

		created, err := s.Orders.ByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, created.CreatedAt.Add(5*24*time.Hour), view.EstimatedDelivery)
	})

	t.Run("current location is the most recent located event", func(t *testing.T) {
		s := memory.New()
		order := seedOrder(t, s)
		require.NoError(t, s.Orders.Transition(ctx, order.ID, models.StatusShipped, "", "Chicago hub", ""))
		require.NoError(t, s.Orders.Transition(ctx, order.ID, models.StatusOutForDelivery, "", "", "On the truck"))

		tracker := New(s.Orders, nil, time.Minute)
		view, err := tracker.Track(ctx, order.OrderNumber)
		require.NoError(t, err)

		assert.Equal(t, "Chicago hub", view.CurrentLocation)
		assert.Equal(t, models.BucketOutForDelivery, view.Bucket)
		assert.Len(t, view.History, 3)
	})

	t.Run("unknown order number errors", func(t *testing.T) {
		tracker := New(memory.New().Orders, nil, time.Minute)
		_, err := tracker.Track(ctx, "CP-999999-9")
		assert.ErrorIs(t, err, models.ErrMissingOrder)
	})

	t.Run("invalidate is safe without a cache", func(t *testing.T) {
		tracker := New(memory.New().Orders, nil, time.Minute)
		tracker.Invalidate(ctx, "CP-000001-1")
	})
}
