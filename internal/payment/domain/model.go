// Package domain defines the payment gateway boundary: card
// tokenization and additional-authentication confirmation.
package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrProviderNotFound = errors.New("payment_provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_payment_provider_config")
)

// CardDetails carries raw card input entered by the customer. It is
// handed to the gateway for tokenization and never persisted.
type CardDetails struct {
	Number   string `json:"number"`
	ExpMonth int64  `json:"exp_month"`
	ExpYear  int64  `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// BillingDetails identifies the customer on the payment method.
type BillingDetails struct {
	Email string
	Name  string
}

// PaymentMethod is the tokenized card returned by the gateway.
type PaymentMethod struct {
	ID string
}

// Gateway abstracts the hosted payment provider.
//
// CreatePaymentMethod tokenizes card details. ConfirmPayment completes
// an additional-authentication challenge using the client secret the
// backend handed out. Both return a *GatewayError when the provider
// rejected the request.
type Gateway interface {
	CreatePaymentMethod(ctx context.Context, card CardDetails, billing BillingDetails) (PaymentMethod, error)
	ConfirmPayment(ctx context.Context, clientSecret string) error
}

// GatewayError is a provider rejection with a stable machine code used
// for user-message mapping.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway error: %s", e.Code)
	}
	return fmt.Sprintf("gateway error: %s: %s", e.Code, e.Message)
}

// AdapterConfig carries provider credentials.
type AdapterConfig struct {
	APIKey string
}

// AdapterFactory builds a Gateway for one provider.
type AdapterFactory interface {
	Provider() string
	NewGateway(cfg AdapterConfig) (Gateway, error)
}
