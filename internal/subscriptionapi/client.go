// Package subscriptionapi is the client for the backend subscription
// service. The service itself is an opaque collaborator; this package
// only speaks its HTTP contract.
package subscriptionapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mewayz/billing/internal/config"
	obstracing "github.com/mewayz/billing/internal/observability/tracing"
)

const defaultTimeout = 15 * time.Second

// CustomerInfo identifies the purchasing customer.
type CustomerInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateSubscriptionRequest is the wire request for subscription creation.
type CreateSubscriptionRequest struct {
	PaymentMethodID string       `json:"payment_method_id"`
	Bundles         []string     `json:"bundles"`
	PaymentInterval string       `json:"payment_interval"`
	CustomerInfo    CustomerInfo `json:"customer_info"`
}

// CreateSubscriptionResponse is the backend's success-path response.
// When RequiresAction is set the caller must complete an additional
// authentication challenge with the client secret before the
// subscription becomes active.
type CreateSubscriptionResponse struct {
	RequiresAction            bool   `json:"requires_action"`
	PaymentIntentClientSecret string `json:"payment_intent_client_secret"`
	SubscriptionID            string `json:"subscription_id"`
	Message                   string `json:"message"`
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("subscription api: status %d: %s", e.StatusCode, e.Message)
}

// Client creates subscriptions on the backend service.
type Client interface {
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResponse, error)
}

type httpClient struct {
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewClient builds the HTTP client from configuration.
func NewClient(cfg config.Config) Client {
	timeout := cfg.SubscriptionAPI.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &httpClient{
		baseURL:     strings.TrimRight(cfg.SubscriptionAPI.BaseURL, "/"),
		bearerToken: cfg.SubscriptionAPI.BearerToken,
		client: obstracing.WrapHTTPClient(&http.Client{
			Timeout: timeout,
		}),
	}
}

func (c *httpClient) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode create-subscription request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/create-subscription", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build create-subscription request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read create-subscription response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.StatusCode),
		}
	}

	var out CreateSubscriptionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode create-subscription response: %w", err)
	}

	return &out, nil
}

func errorMessage(body []byte, statusCode int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := strings.TrimSpace(payload.Message); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(statusCode)
}
