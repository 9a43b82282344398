package models

import (
	"fmt"
	"time"
)

// Order lifecycle statuses. The forward chain is
// pending -> processing -> shipped -> out_for_delivery -> delivered;
// cancelled is reachable from any non-terminal status.
const (
	StatusPending        = "pending"
	StatusProcessing     = "processing"
	StatusShipped        = "shipped"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

// Payment methods accepted at checkout.
const (
	PaymentGateway        = "gateway"
	PaymentCashOnDelivery = "cod"
)

// transitions is the allowed-next-states table. A status missing from the
// value slice is an illegal target; terminal statuses map to an empty slice.
var transitions = map[string][]string{
	StatusPending:        {StatusProcessing, StatusCancelled},
	StatusProcessing:     {StatusShipped, StatusCancelled},
	StatusShipped:        {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

// InvalidTransitionError reports a rejected order-status change.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("order is already %s", e.From)
	}
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the from -> to change is allowed by the
// transition table.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks a requested status change, including the
// non-empty-reason guard on cancellation. Same-status requests are rejected.
func ValidateTransition(from, to, reason string) error {
	if !ValidStatus(to) {
		return fmt.Errorf("unknown order status %q", to)
	}
	if from == to || !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == StatusCancelled && reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// OrderItem is a frozen copy of a cart line taken at assembly time. Later
// cart mutations never touch it.
type OrderItem struct {
	ID            int64    `json:"id"`
	OrderID       int64    `json:"-"`
	ProductID     string   `json:"product_id"`
	Name          string   `json:"name"`
	UnitPrice     float64  `json:"unit_price"`
	Quantity      int      `json:"quantity"`
	Image         string   `json:"image,omitempty"`
	Size          string   `json:"size,omitempty"`
	Color         string   `json:"color,omitempty"`
	SelectedSizes []string `json:"selected_sizes,omitempty"`
}

// SnapshotItems freezes cart lines into order items.
func SnapshotItems(items []CartItem) []OrderItem {
	out := make([]OrderItem, len(items))
	for i, it := range items {
		sizes := make([]string, len(it.SelectedSizes))
		copy(sizes, it.SelectedSizes)
		out[i] = OrderItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			UnitPrice:     it.UnitPrice,
			Quantity:      it.Quantity,
			Image:         it.Image,
			Size:          it.Size,
			Color:         it.Color,
			SelectedSizes: sizes,
		}
	}
	return out
}

// Order is an immutable record of a checkout attempt. It is created in
// status pending and from then on only its status, payment fields and
// shipping address move.
type Order struct {
	ID                 int64       `json:"id"`
	OrderNumber        string      `json:"order_number"`
	UserID             int64       `json:"user_id"`
	Items              []OrderItem `json:"items,omitempty"`
	Subtotal           float64     `json:"subtotal"`
	DeliveryFee        float64     `json:"delivery_fee"`
	Total              float64     `json:"total"`
	ShippingAddress    *Address    `json:"shipping_address,omitempty"`
	PaymentMethod      string      `json:"payment_method,omitempty"`
	PaymentDetails     string      `json:"payment_details,omitempty"`
	TransactionID      string      `json:"transaction_id,omitempty"`
	Status             string      `json:"status"`
	CancellationReason string      `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}
