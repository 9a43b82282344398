package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftprint/storefront-api/checkout"
)

// StartCheckout turns the cart into a pending order, or returns the pending
// order that an earlier attempt already produced.
func (h *Handler) StartCheckout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	order, err := h.Assembler.Assemble(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout started",
		"order":   order,
	})
}

func (h *Handler) SetCheckoutShipping(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input checkout.ShippingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.Assembler.SetShipping(c.Request.Context(), userID, c.Param("number"), input)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping address set",
		"order":   order,
	})
}

func (h *Handler) StartPayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		PaymentMethod string `json:"paymentMethod" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Payments.Begin(c.Request.Context(), userID, c.Param("number"), input.PaymentMethod)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
