package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftprint/storefront-api/models"
)

func (h *Handler) AdminListOrders(c *gin.Context) {
	orders, err := h.Orders.ListAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// AdminUpdateOrderStatus advances an order along the fulfillment path. The
// transition table is enforced in the store; an illegal jump comes back as a
// conflict, not a silent overwrite.
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Status      string `json:"status" binding:"required"`
		Reason      string `json:"reason"`
		Location    string `json:"location"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + input.Status})
		return
	}

	ctx := c.Request.Context()

	err := h.Orders.Transition(ctx, orderID, input.Status, input.Reason, input.Location, input.Description)
	if err != nil {
		fail(c, err)
		return
	}

	order, err := h.Orders.ByID(ctx, orderID)
	if err != nil {
		fail(c, err)
		return
	}

	h.Tracker.Invalidate(ctx, order.OrderNumber)

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}
