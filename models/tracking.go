package models

import "time"

// TrackingEvent is one entry in an order's append-only status history.
type TrackingEvent struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"-"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Display buckets for the customer-facing tracking view.
const (
	BucketProcessing     = "processing"
	BucketShipped        = "shipped"
	BucketOutForDelivery = "out_for_delivery"
	BucketDelivered      = "delivered"
	BucketCancelled      = "cancelled"
)

var displayBuckets = map[string]string{
	StatusPending:        BucketProcessing,
	StatusProcessing:     BucketProcessing,
	StatusShipped:        BucketShipped,
	StatusOutForDelivery: BucketOutForDelivery,
	StatusDelivered:      BucketDelivered,
	StatusCancelled:      BucketCancelled,
}

// DisplayBucket maps a raw order status onto the small fixed set of buckets
// the tracking screen renders. Unrecognized statuses fall back to processing.
func DisplayBucket(status string) string {
	if b, ok := displayBuckets[status]; ok {
		return b
	}
	return BucketProcessing
}
