package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/craftprint/storefront-api/checkout"
	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
	"github.com/craftprint/storefront-api/tracking"
)

// Handler carries the services the HTTP layer dispatches into.
type Handler struct {
	Carts     store.CartStore
	Addresses store.AddressBook
	Orders    store.OrderStore
	Assembler *checkout.Assembler
	Payments  *checkout.Coordinator
	Tracker   *tracking.Tracker
	DB        *sql.DB
}

// currentUserID pulls the authenticated user's id out of the gin context,
// where AuthMiddleware put it.
func currentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthenticated.Error()})
		return 0, false
	}
	id, ok := v.(int64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthenticated.Error()})
		return 0, false
	}
	return id, true
}

// fail maps a domain error onto an HTTP response. Unknown errors become an
// opaque 500; the detail goes to the log, not the client.
func fail(c *gin.Context, err error) {
	var invalid *models.InvalidTransitionError

	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrMissingOrder),
		errors.Is(err, models.ErrMissingAddress),
		errors.Is(err, models.ErrMissingItem):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrVersionConflict),
		errors.Is(err, models.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPaymentFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
