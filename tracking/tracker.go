// Package tracking builds the customer-facing, read-only projection of an
// order's status history.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
)

// deliveryEstimate is added to the order's creation time to produce the
// estimated delivery date shown to the customer.
const deliveryEstimate = 5 * 24 * time.Hour

// View is the tracking screen's data: current status mapped into a display
// bucket, plus the append-only history.
type View struct {
	OrderNumber       string                 `json:"order_number"`
	Status            string                 `json:"status"`
	Bucket            string                 `json:"bucket"`
	TrackingNumber    string                 `json:"tracking_number"`
	EstimatedDelivery time.Time              `json:"estimated_delivery"`
	CurrentLocation   string                 `json:"current_location,omitempty"`
	History           []models.TrackingEvent `json:"history"`
}

// Tracker serves tracking views, caching them in Redis for a short TTL since
// the data is read far more often than it changes. A nil cache client
// degrades to direct store reads.
type Tracker struct {
	orders store.OrderStore
	cache  *redis.Client
	ttl    time.Duration
}

// New builds a tracker. cache may be nil.
func New(orders store.OrderStore, cache *redis.Client, ttl time.Duration) *Tracker {
	return &Tracker{orders: orders, cache: cache, ttl: ttl}
}

// Track returns the tracking view for an order number.
func (t *Tracker) Track(ctx context.Context, orderNumber string) (*View, error) {
	if view := t.cached(ctx, orderNumber); view != nil {
		return view, nil
	}

	order, err := t.orders.ByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	history, err := t.orders.History(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load tracking history: %w", err)
	}

	view := &View{
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		Bucket:            models.DisplayBucket(order.Status),
		TrackingNumber:    order.OrderNumber,
		EstimatedDelivery: order.CreatedAt.Add(deliveryEstimate),
		History:           history,
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Location != "" {
			view.CurrentLocation = history[i].Location
			break
		}
	}

	t.store(ctx, orderNumber, view)
	return view, nil
}

// Invalidate drops the cached view after a status transition.
func (t *Tracker) Invalidate(ctx context.Context, orderNumber string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Del(ctx, cacheKey(orderNumber)).Err(); err != nil {
		slog.Error("failed to invalidate tracking cache", "order_number", orderNumber, "error", err)
	}
}

func (t *Tracker) cached(ctx context.Context, orderNumber string) *View {
	if t.cache == nil {
		return nil
	}
	raw, err := t.cache.Get(ctx, cacheKey(orderNumber)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		slog.Error("tracking cache read failed", "order_number", orderNumber, "error", err)
		return nil
	}
	var view View
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil
	}
	return &view
}

func (t *Tracker) store(ctx context.Context, orderNumber string, view *View) {
	if t.cache == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := t.cache.Set(ctx, cacheKey(orderNumber), raw, t.ttl).Err(); err != nil {
		slog.Error("tracking cache write failed", "order_number", orderNumber, "error", err)
	}
}

func cacheKey(orderNumber string) string {
	return "storefront:tracking:" + orderNumber
}
