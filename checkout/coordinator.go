package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/craftprint/storefront-api/models"
	"github.com/craftprint/storefront-api/store"
)

// Payment attempt states. One checkout attempt moves
// AwaitingMethodSelection -> Redirecting (gateway) or straight to Succeeded
// (cash on delivery); Redirecting resolves to Succeeded or Failed when the
// gateway calls back. A failed or cancelled attempt returns the order to
// AwaitingMethodSelection; the pending order itself is untouched and can be
// retried indefinitely.
const (
	StateAwaitingMethod       = "awaiting_method_selection"
	StateRedirecting          = "redirecting"
	StateAwaitingConfirmation = "awaiting_external_confirmation"
	StateSucceeded            = "succeeded"
	StateFailed               = "failed"
)

// OutboxKindCancelCharge identifies gateway-void notifications in the outbox.
const OutboxKindCancelCharge = "payment.cancel_charge"

// CancelChargePayload is the outbox payload for a gateway void.
type CancelChargePayload struct {
	TransactionID string `json:"transaction_id"`
	OrderNumber   string `json:"order_number"`
}

// paymentDetails is what Finalize persists onto the order row.
type paymentDetails struct {
	TransactionID string `json:"transaction_id,omitempty"`
	GatewayStatus string `json:"gateway_status,omitempty"`
}

// Coordinator drives a chosen payment method to completion and finalizes the
// order exactly once on success.
type Coordinator struct {
	orders  store.OrderStore
	gateway Gateway
	outbox  store.OutboxStore
}

// NewCoordinator wires the coordinator to the order store, the external
// gateway, and the outbox used for gateway voids.
func NewCoordinator(orders store.OrderStore, gateway Gateway, outbox store.OutboxStore) *Coordinator {
	return &Coordinator{orders: orders, gateway: gateway, outbox: outbox}
}

// BeginResult tells the handler where the attempt stands after Begin.
type BeginResult struct {
	State         string `json:"state"`
	OrderID       int64  `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	PaymentURL    string `json:"payment_url,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Begin starts payment for the user's pending order. Cash on delivery
// finalizes immediately; gateway methods register the charge and hand back
// the redirect URL, leaving confirmation to the webhook.
func (c *Coordinator) Begin(ctx context.Context, userID int64, orderNumber, method string) (*BeginResult, error) {
	order, err := c.ownedPending(ctx, userID, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.ShippingAddress == nil {
		return nil, models.ErrMissingAddress
	}

	switch method {
	case models.PaymentCashOnDelivery:
		if err := c.finalize(ctx, order.ID, method, paymentDetails{}); err != nil {
			return nil, err
		}
		return &BeginResult{
			State:       StateSucceeded,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
		}, nil

	case models.PaymentGateway:
		charge, err := c.gateway.CreateCharge(ctx, ChargeRequest{
			OrderNumber: order.OrderNumber,
			Amount:      order.Total,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailed, err)
		}
		if err := c.orders.SetTransaction(ctx, order.ID, method, charge.TransactionID); err != nil {
			return nil, fmt.Errorf("record transaction: %w", err)
		}
		return &BeginResult{
			State:         StateRedirecting,
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			PaymentURL:    charge.PaymentURL,
			TransactionID: charge.TransactionID,
		}, nil

	default:
		return nil, fmt.Errorf("unknown payment method %q", method)
	}
}

// Confirm applies a gateway callback. Delivery is at-least-once: a success
// callback for an order that already left pending is an OK no-op. Failure
// and cancellation callbacks leave the pending order untouched so the
// customer can retry. Callbacks only count against the charge Begin
// registered: an order with no recorded transaction, or a mismatched
// reference, is rejected so the open webhook cannot mark unpaid orders paid.
func (c *Coordinator) Confirm(ctx context.Context, orderNumber, transactionID, gatewayStatus string) error {
	order, err := c.orders.ByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.TransactionID == "" || order.TransactionID != transactionID {
		return models.ErrMissingOrder
	}

	switch strings.ToUpper(gatewayStatus) {
	case "SUCCESS":
		err := c.finalize(ctx, order.ID, models.PaymentGateway, paymentDetails{
			TransactionID: transactionID,
			GatewayStatus: gatewayStatus,
		})
		if errors.Is(err, models.ErrAlreadyFinalized) {
			slog.Info("duplicate payment confirmation ignored",
				"order_number", orderNumber, "transaction_id", transactionID)
			return nil
		}
		return err

	case "FAILED", "CANCELLED":
		slog.Info("payment attempt did not complete, order stays pending",
			"order_number", orderNumber, "gateway_status", gatewayStatus)
		return nil

	default:
		return fmt.Errorf("unknown gateway status %q", gatewayStatus)
	}
}

// CancelPending cancels a customer's own order while it is still pending and
// queues a gateway void for any registered charge. The void goes through the
// outbox so a gateway outage cannot lose it.
func (c *Coordinator) CancelPending(ctx context.Context, userID int64, orderNumber, reason string) error {
	order, err := c.ownedPending(ctx, userID, orderNumber)
	if err != nil {
		return err
	}

	if err := c.orders.Transition(ctx, order.ID, models.StatusCancelled, reason, "", "Cancelled by customer"); err != nil {
		return err
	}

	if order.TransactionID != "" {
		payload, err := json.Marshal(CancelChargePayload{
			TransactionID: order.TransactionID,
			OrderNumber:   order.OrderNumber,
		})
		if err != nil {
			return fmt.Errorf("encode cancel payload: %w", err)
		}
		if err := c.outbox.Enqueue(ctx, OutboxKindCancelCharge, string(payload)); err != nil {
			// The order is already cancelled; the void is best-effort from
			// the caller's point of view but the failure is worth a log line.
			slog.Error("failed to enqueue gateway void", "order_number", orderNumber, "error", err)
		}
	}
	return nil
}

// finalize is the single commit point: the store transaction writes payment
// data, moves the order to processing, and clears the cart together.
func (c *Coordinator) finalize(ctx context.Context, orderID int64, method string, details paymentDetails) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode payment details: %w", err)
	}
	return c.orders.Finalize(ctx, orderID, method, string(raw))
}

func (c *Coordinator) ownedPending(ctx context.Context, userID int64, orderNumber string) (*models.Order, error) {
	order, err := c.orders.ByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.ErrMissingOrder
	}
	if order.Status != models.StatusPending {
		return nil, models.ErrAlreadyFinalized
	}
	return order, nil
}
