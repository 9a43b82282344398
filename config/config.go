package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, loaded from the environment with
// sensible defaults for local development.
type Config struct {
	ListenAddr string
	DatabaseDSN string

	JWTSecret string

	// Payment gateway the checkout flow talks to.
	GatewayBaseURL string
	GatewayTimeout time.Duration

	// Redis address for the order-tracking cache. Empty disables caching.
	RedisAddr   string
	TrackingTTL time.Duration

	// Prefix used when generating human-readable order numbers.
	StorePrefix string

	// Flat delivery fee applied to every order at checkout.
	DeliveryFee float64

	// How often the outbox worker drains pending entries.
	OutboxInterval time.Duration
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		ListenAddr:     getenv("LISTEN_ADDR", ":8080"),
		DatabaseDSN:    getenv("DATABASE_DSN", "storefront:storefront@tcp(localhost:3306)/storefront?parseTime=true"),
		JWTSecret:      getenv("JWT_SECRET", "change_this_secret"),
		GatewayBaseURL: getenv("PAYMENT_GATEWAY_URL", "http://localhost:8088"),
		GatewayTimeout: getdur("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		TrackingTTL:    getdur("TRACKING_CACHE_TTL", 30*time.Second),
		StorePrefix:    getenv("STORE_PREFIX", "CP"),
		DeliveryFee:    getfloat("DELIVERY_FEE", 10),
		OutboxInterval: getdur("OUTBOX_INTERVAL", 15*time.Second),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
