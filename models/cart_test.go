package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotals(t *testing.T) {
	cart := Cart{
		Version: 3,
		Items: []CartItem{
			{ProductID: "mug-1", UnitPrice: 12.0, Quantity: 2},
			{ProductID: "tee-1", UnitPrice: 19.5, Quantity: 1},
		},
	}

	assert.Equal(t, 3, cart.TotalItems())
	assert.Equal(t, 43.5, cart.TotalPrice())

	summary := cart.Summarize()
	assert.Equal(t, int64(3), summary.Version)
	assert.Equal(t, 2, summary.ItemCount)
	assert.Equal(t, 3, summary.TotalItems)
	assert.Equal(t, 43.5, summary.TotalPrice)
}

func TestCartItemMerge(t *testing.T) {
	existing := CartItem{
		ProductID:     "tee-1",
		Quantity:      2,
		Size:          "M",
		Color:         "white",
		SelectedSizes: []string{"M"},
	}

	existing.Merge(CartItem{
		ProductID:     "tee-1",
		Quantity:      3,
		Size:          "L",
		Color:         "black",
		SelectedSizes: []string{"L", "XL"},
	})

	assert.Equal(t, 5, existing.Quantity, "quantity is additive")
	assert.Equal(t, "L", existing.Size, "variant attributes are last-write-wins")
	assert.Equal(t, "black", existing.Color)
	assert.Equal(t, []string{"L", "XL"}, existing.SelectedSizes)
}

func TestCartItemInputItem(t *testing.T) {
	t.Run("defaults quantity to one", func(t *testing.T) {
		item := CartItemInput{ProductID: "tee-1", Name: "Tee", UnitPrice: 10}.Item()
		assert.Equal(t, 1, item.Quantity)
	})

	t.Run("keeps an explicit quantity", func(t *testing.T) {
		item := CartItemInput{ProductID: "tee-1", Name: "Tee", UnitPrice: 10, Quantity: 4}.Item()
		assert.Equal(t, 4, item.Quantity)
	})
}

func TestDisplayBucket(t *testing.T) {
	assert.Equal(t, BucketProcessing, DisplayBucket(StatusPending))
	assert.Equal(t, BucketProcessing, DisplayBucket(StatusProcessing))
	assert.Equal(t, BucketShipped, DisplayBucket(StatusShipped))
	assert.Equal(t, BucketOutForDelivery, DisplayBucket(StatusOutForDelivery))
	assert.Equal(t, BucketDelivered, DisplayBucket(StatusDelivered))
	assert.Equal(t, BucketCancelled, DisplayBucket(StatusCancelled))
	assert.Equal(t, BucketProcessing, DisplayBucket("something_new"), "unknown statuses fall back to processing")
}
