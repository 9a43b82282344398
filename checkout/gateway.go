package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChargeRequest is what the storefront hands the external payment gateway:
// the order reference and the amount, nothing else. Card data never touches
// this service.
type ChargeRequest struct {
	OrderNumber string  `json:"orderId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// Charge is the gateway's answer to a created payment: an opaque transaction
// reference plus the URL the customer is redirected to.
type Charge struct {
	TransactionID string `json:"transactionId"`
	PaymentURL    string `json:"paymentUrl"`
}

// Gateway abstracts the external payment service.
type Gateway interface {
	// CreateCharge registers a payment attempt and returns the redirect
	// target. Confirmation arrives later through the webhook.
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)

	// CancelCharge voids a previously created payment attempt.
	CancelCharge(ctx context.Context, transactionID string) error
}

// HTTPGateway talks to the payment service over its REST API.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway builds a gateway client for the given base URL.
func NewHTTPGateway(baseURL string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/api/payment/create", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	var charge Charge
	if err := json.Unmarshal(raw, &charge); err != nil {
		return nil, fmt.Errorf("parse gateway response: %w", err)
	}
	if charge.TransactionID == "" {
		return nil, fmt.Errorf("gateway response missing transaction id")
	}
	return &charge, nil
}

func (g *HTTPGateway) CancelCharge(ctx context.Context, transactionID string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/payment/cancel/%s", g.baseURL, transactionID), nil)
	if err != nil {
		return fmt.Errorf("build cancel request: %w", err)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("payment gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payment gateway returned %s", resp.Status)
	}
	return nil
}
