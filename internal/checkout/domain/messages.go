package domain

import (
	"context"
	"errors"
	"strings"

	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
)

// User-facing copy per failure category. Every orchestrator failure is
// converted into one of these strings; raw errors never reach the caller.

const (
	msgDeclined       = "Your card was declined. Please try a different payment method or contact your bank."
	msgNetworkGeneric = "A network error occurred. Please check your connection and try again."
	msgTimeout        = "The request timed out. Please try again."
	msgSessionExpired = "Your session has expired. Please refresh the page and try again."
)

var cardValidationMessages = map[string]string{
	"incomplete_number": "Your card number is incomplete.",
	"incomplete_cvc":    "Your card's security code is incomplete.",
	"incomplete_expiry": "Your card's expiration date is incomplete.",
	"invalid_number":    "Your card number is invalid.",
	"invalid_expiry":    "Your card's expiration date is invalid.",
	"invalid_cvc":       "Your card's security code is invalid.",
}

var confirmMessages = map[string]string{
	"card_declined":      msgDeclined,
	"expired_card":       "Your card has expired. Please use a different payment method.",
	"insufficient_funds": "Your card has insufficient funds. Please use a different payment method.",
	"incorrect_cvc":      "Your card's security code is incorrect.",
	"processing_error":   "An error occurred while processing your card. Please try again in a moment.",
}

// CardValidationMessage maps a tokenization error code to user-facing text,
// falling back to the provider-supplied message for unrecognized codes.
func CardValidationMessage(gerr *paymentdomain.GatewayError) string {
	if msg, ok := cardValidationMessages[gerr.Code]; ok {
		return msg
	}
	return gerr.Message
}

// ConfirmMessage maps an authentication/confirmation error code to
// user-facing text, falling back to the provider-supplied message.
func ConfirmMessage(gerr *paymentdomain.GatewayError) string {
	if msg, ok := confirmMessages[gerr.Code]; ok {
		return msg
	}
	return gerr.Message
}

// BackendMessage rewrites known backend failure messages into friendlier
// text by substring, otherwise shows the backend message as-is.
func BackendMessage(msg string) string {
	switch {
	case strings.Contains(msg, "Authentication"):
		return "We could not authenticate your payment. Please try again."
	case strings.Contains(msg, "Card error"):
		return "There was a problem with your card. Please check your details and try again."
	case strings.Contains(msg, "Rate limit"):
		return "Too many requests. Please wait a moment and try again."
	default:
		return msg
	}
}

// NetworkMessage classifies a transport-level error.
func NetworkMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return msgTimeout
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return msgTimeout
	case strings.Contains(msg, "session expired"):
		return msgSessionExpired
	default:
		return msgNetworkGeneric
	}
}
