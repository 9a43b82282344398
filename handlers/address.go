package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftprint/storefront-api/models"
)

func (h *Handler) ListAddresses(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	addresses, err := h.Addresses.List(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (h *Handler) AddAddress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input models.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := h.Addresses.Add(c.Request.Context(), userID, input)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Address added",
		"address": address,
	})
}

func (h *Handler) UpdateAddress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input models.AddressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := h.Addresses.Update(c.Request.Context(), userID, addressID, input)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Address updated",
		"address": address,
	})
}

func (h *Handler) SetDefaultAddress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Addresses.SetDefault(c.Request.Context(), userID, addressID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default address updated"})
}

func (h *Handler) RemoveAddress(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	addressID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Addresses.Remove(c.Request.Context(), userID, addressID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Address removed"})
}
