package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/craftprint/storefront-api/models"
)

func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cart, err := h.Carts.Get(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart":    cart,
		"summary": cart.Summarize(),
	})
}

func (h *Handler) AddCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.CartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.Carts.Add(c.Request.Context(), userID, input.Item())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item added to cart",
		"cart":    cart,
	})
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Quantity deliberately has no required binding: the store treats any
	// value below one as a no-op, zero included.
	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.Carts.UpdateQuantity(c.Request.Context(), userID, c.Param("productId"), input.Quantity)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
		"cart":    cart,
	})
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cart, err := h.Carts.Remove(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
		"cart":    cart,
	})
}

func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.Carts.Clear(c.Request.Context(), userID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// ReplaceCart swaps the whole cart for the supplied items. The client must
// echo back the version it last saw; a stale version is rejected so two tabs
// cannot silently overwrite each other.
func (h *Handler) ReplaceCart(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.CartReplaceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cart, err := h.Carts.Replace(c.Request.Context(), userID, input.Version, input.CartItems())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart replaced",
		"cart":    cart,
	})
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
