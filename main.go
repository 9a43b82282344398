package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/craftprint/storefront-api/checkout"
	"github.com/craftprint/storefront-api/config"
	"github.com/craftprint/storefront-api/handlers"
	"github.com/craftprint/storefront-api/middleware"
	"github.com/craftprint/storefront-api/outbox"
	"github.com/craftprint/storefront-api/store/mysql"
	"github.com/craftprint/storefront-api/tracking"
	"github.com/craftprint/storefront-api/utils"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	utils.SetJWTSecret(cfg.JWTSecret)

	if err := config.InitDB(cfg.DatabaseDSN); err != nil {
		slog.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer config.DB.Close()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer cache.Close()
	}

	stores := mysql.New(config.DB)
	gateway := checkout.NewHTTPGateway(cfg.GatewayBaseURL, cfg.GatewayTimeout)
	assembler := checkout.NewAssembler(stores.Carts, stores.Orders, stores.Addresses, cfg.StorePrefix, cfg.DeliveryFee)
	payments := checkout.NewCoordinator(stores.Orders, gateway, stores.Outbox)
	tracker := tracking.New(stores.Orders, cache, cfg.TrackingTTL)

	// Outbox worker retries gateway voids until they land.
	worker := outbox.NewWorker(stores.Outbox, cfg.OutboxInterval)
	worker.Register(checkout.OutboxKindCancelCharge, func(ctx context.Context, payload string) error {
		var p checkout.CancelChargePayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return fmt.Errorf("decode cancel payload: %w", err)
		}
		return gateway.CancelCharge(ctx, p.TransactionID)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go worker.Run(ctx)

	h := &handlers.Handler{
		Carts:     stores.Carts,
		Addresses: stores.Addresses,
		Orders:    stores.Orders,
		Assembler: assembler,
		Payments:  payments,
		Tracker:   tracker,
		DB:        config.DB,
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	r.GET("/health-check", h.HealthCheck)

	// Protected routes (authentication required)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	{
		// Cart routes
		auth.GET("/cart", h.GetCart)
		auth.POST("/cart/items", h.AddCartItem)
		auth.PUT("/cart/items/:productId", h.UpdateCartItem)
		auth.DELETE("/cart/items/:productId", h.RemoveCartItem)
		auth.DELETE("/cart", h.ClearCart)
		auth.PUT("/cart", h.ReplaceCart)

		// Checkout routes
		auth.POST("/checkout", h.StartCheckout)
		auth.PUT("/checkout/:number/shipping", h.SetCheckoutShipping)
		auth.POST("/checkout/:number/payment", h.StartPayment)

		// Order routes
		auth.GET("/orders", h.ListOrders)
		auth.GET("/orders/:number", h.GetOrder)
		auth.POST("/orders/:number/cancel", h.CancelOrder)
		auth.GET("/orders/:number/tracking", h.TrackOrder)

		// Shipping address routes
		auth.GET("/shipping-addresses", h.ListAddresses)
		auth.POST("/shipping-addresses", h.AddAddress)
		auth.PUT("/shipping-addresses/:id", h.UpdateAddress)
		auth.PUT("/shipping-addresses/:id/default", h.SetDefaultAddress)
		auth.DELETE("/shipping-addresses/:id", h.RemoveAddress)
	}

	// Admin-only routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminRequired())
	{
		admin.GET("/orders", h.AdminListOrders)
		admin.PUT("/orders/:id/status", h.AdminUpdateOrderStatus)
	}

	// Webhook routes (called by external services)
	r.POST("/api/webhook/payment", h.PaymentWebhook)

	slog.Info("server starting", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
