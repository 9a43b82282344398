package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftprint/storefront-api/models"
)

func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	orders, err := h.Orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	order, err := h.Orders.ByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		fail(c, err)
		return
	}
	if order.UserID != userID {
		fail(c, models.ErrMissingOrder)
		return
	}

	history, err := h.Orders.History(c.Request.Context(), order.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":   order,
		"history": history,
	})
}

// CancelOrder lets a customer cancel their own order while it is still
// pending. A reason is mandatory; any registered gateway charge gets voided
// asynchronously.
func (h *Handler) CancelOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrReasonRequired.Error()})
		return
	}

	if err := h.Payments.CancelPending(c.Request.Context(), userID, c.Param("number"), input.Reason); err != nil {
		fail(c, err)
		return
	}

	h.Tracker.Invalidate(c.Request.Context(), c.Param("number"))

	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
}

func (h *Handler) TrackOrder(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	number := c.Param("number")

	order, err := h.Orders.ByNumber(c.Request.Context(), number)
	if err != nil {
		fail(c, err)
		return
	}
	if order.UserID != userID {
		fail(c, models.ErrMissingOrder)
		return
	}

	view, err := h.Tracker.Track(c.Request.Context(), number)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
