package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PaymentWebhook receives the gateway's callback. The gateway retries until
// it sees a 2xx, so the confirmation path tolerates duplicates.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var payload struct {
		OrderID       string `json:"orderId" binding:"required"`
		TransactionID string `json:"transactionId" binding:"required"`
		Status        string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Payments.Confirm(c.Request.Context(), payload.OrderID, payload.TransactionID, payload.Status); err != nil {
		fail(c, err)
		return
	}

	h.Tracker.Invalidate(c.Request.Context(), payload.OrderID)

	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed"})
}
