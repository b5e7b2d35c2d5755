package stripe

import (
	"context"
	"errors"
	"testing"

	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
	"github.com/stripe/stripe-go/v82"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{{
		name:     "error code",
		err:      &stripe.Error{Code: stripe.ErrorCodeIncorrectNumber, Msg: "Your card number is incorrect."},
		wantCode: "incorrect_number",
	}, {
		name:     "decline code wins over error code",
		err:      &stripe.Error{Code: stripe.ErrorCodeCardDeclined, DeclineCode: stripe.DeclineCodeInsufficientFunds, Msg: "Your card has insufficient funds."},
		wantCode: "insufficient_funds",
	}, {
		name:     "plain card decline",
		err:      &stripe.Error{Code: stripe.ErrorCodeCardDeclined, Msg: "Your card was declined."},
		wantCode: "card_declined",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translated := translateError(tt.err)

			var gatewayErr *paymentdomain.GatewayError
			if !errors.As(translated, &gatewayErr) {
				t.Fatalf("expected GatewayError, got %T", translated)
			}
			if gatewayErr.Code != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, gatewayErr.Code)
			}
		})
	}
}

func TestTranslateErrorPassthrough(t *testing.T) {
	plain := errors.New("connection reset")
	if got := translateError(plain); got != plain {
		t.Fatalf("expected non-stripe error to pass through, got %v", got)
	}
}

func TestConfirmPaymentMalformedClientSecret(t *testing.T) {
	g := &Gateway{}

	err := g.ConfirmPayment(context.Background(), "garbage")

	var gatewayErr *paymentdomain.GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
	if gatewayErr.Code != "invalid_client_secret" {
		t.Fatalf("expected code invalid_client_secret, got %s", gatewayErr.Code)
	}
}

func TestIntentIDFromClientSecret(t *testing.T) {
	id, ok := intentIDFromClientSecret("pi_3Abc123_secret_xyz789")
	if !ok {
		t.Fatalf("expected valid client secret")
	}
	if id != "pi_3Abc123" {
		t.Fatalf("expected intent id pi_3Abc123, got %s", id)
	}

	if _, ok := intentIDFromClientSecret("not-a-secret"); ok {
		t.Fatalf("expected malformed client secret to be rejected")
	}
	if _, ok := intentIDFromClientSecret("_secret_only"); ok {
		t.Fatalf("expected empty intent id to be rejected")
	}
}
