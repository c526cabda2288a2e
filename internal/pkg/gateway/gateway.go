// Package gateway wraps the external payment provider. The provider is the
// system of record for captured money; the tuition ledger is reconciled
// against it by the payment service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yigit/schoolsphere/internal/pkg/apperrors"
)

// IntentStatus is the provider-side state of a checkout session.
type IntentStatus string

const (
	IntentRequiresPayment IntentStatus = "requires_payment"
	IntentSucceeded       IntentStatus = "succeeded"
	IntentFailed          IntentStatus = "failed"
	IntentCancelled       IntentStatus = "cancelled"
)

// Intent is the provider-side reservation to collect an amount.
type Intent struct {
	Reference   string       `json:"reference"`
	Amount      int64        `json:"amount"`
	Currency    string       `json:"currency"`
	Status      IntentStatus `json:"status"`
	CheckoutURL string       `json:"checkoutUrl,omitempty"`
}

// Client is the payment-gateway surface consumed by the payment service.
// Implementations must be safe for concurrent use.
type Client interface {
	// CreateIntent reserves an amount at the provider. Safe to retry: no
	// money moves until the intent is confirmed on the provider side.
	CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string) (*Intent, error)
	// RetrieveIntent fetches the authoritative state of an intent.
	RetrieveIntent(ctx context.Context, reference string) (*Intent, error)
}

// Config holds HTTP gateway client settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Currency string
}

// HTTPClient talks JSON over HTTP to the payment provider.
type HTTPClient struct {
	config Config
	http   *http.Client
}

// NewHTTPClient creates a gateway client from config.
func NewHTTPClient(config Config) *HTTPClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		config: config,
		http:   &http.Client{Timeout: timeout},
	}
}

type createIntentRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// CreateIntent implements Client.
func (c *HTTPClient) CreateIntent(ctx context.Context, amount int64, currency, idempotencyKey string) (*Intent, error) {
	payload, err := json.Marshal(createIntentRequest{
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/intents", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	return c.do(req)
}

// RetrieveIntent implements Client.
func (c *HTTPClient) RetrieveIntent(ctx context.Context, reference string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/v1/intents/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (*Intent, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.ErrPaymentNotFound
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, apperrors.NewCustomError(apperrors.ErrGatewayRejected, body.Message)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &intent, nil
}
