package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	t.Run("forward chain is allowed step by step", func(t *testing.T) {
		chain := []string{StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered}
		for i := 0; i < len(chain)-1; i++ {
			assert.NoError(t, ValidateTransition(chain[i], chain[i+1], ""))
		}
	})

	t.Run("skipping a step is rejected", func(t *testing.T) {
		err := ValidateTransition(StatusPending, StatusShipped, "")
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, StatusPending, invalid.From)
		assert.Equal(t, StatusShipped, invalid.To)
	})

	t.Run("moving backwards is rejected", func(t *testing.T) {
		assert.Error(t, ValidateTransition(StatusShipped, StatusProcessing, ""))
	})

	t.Run("same status is rejected", func(t *testing.T) {
		var invalid *InvalidTransitionError
		err := ValidateTransition(StatusProcessing, StatusProcessing, "")
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Error(), "already")
	})

	t.Run("cancel is allowed from any non-terminal status", func(t *testing.T) {
		for _, from := range []string{StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery} {
			assert.NoError(t, ValidateTransition(from, StatusCancelled, "changed my mind"), from)
		}
	})

	t.Run("cancel without a reason is rejected", func(t *testing.T) {
		err := ValidateTransition(StatusPending, StatusCancelled, "")
		assert.ErrorIs(t, err, ErrReasonRequired)
	})

	t.Run("terminal statuses allow nothing", func(t *testing.T) {
		for _, from := range []string{StatusDelivered, StatusCancelled} {
			for _, to := range []string{StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled} {
				if from == to {
					continue
				}
				assert.Error(t, ValidateTransition(from, to, "reason"), "%s -> %s", from, to)
			}
		}
	})

	t.Run("unknown target status is rejected", func(t *testing.T) {
		assert.Error(t, ValidateTransition(StatusPending, "returned", ""))
	})
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus("returned"))
	assert.False(t, ValidStatus(""))
}

func TestSnapshotItems(t *testing.T) {
	cart := []CartItem{
		{
			ProductID:     "tee-1",
			Name:          "Custom Tee",
			UnitPrice:     19.5,
			Quantity:      2,
			Size:          "L",
			Color:         "black",
			SelectedSizes: []string{"S", "M"},
		},
	}

	items := SnapshotItems(cart)
	require.Len(t, items, 1)
	assert.Equal(t, "tee-1", items[0].ProductID)
	assert.Equal(t, 19.5, items[0].UnitPrice)
	assert.Equal(t, 2, items[0].Quantity)

	// Mutating the cart afterwards must not reach the snapshot.
	cart[0].Quantity = 99
	cart[0].SelectedSizes[0] = "XXL"
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, []string{"S", "M"}, items[0].SelectedSizes)
}
