package domain

import (
	"context"
	"errors"
	"testing"

	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
)

func TestCardValidationMessageKnownCodes(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"incomplete_number", "Your card number is incomplete."},
		{"invalid_number", "Your card number is invalid."},
		{"invalid_cvc", "Your card's security code is invalid."},
	}
	for _, tc := range cases {
		got := CardValidationMessage(&paymentdomain.GatewayError{Code: tc.code, Message: "raw"})
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.code, tc.want, got)
		}
	}
}

func TestCardValidationMessageFallsBackToProvider(t *testing.T) {
	got := CardValidationMessage(&paymentdomain.GatewayError{Code: "mystery_code", Message: "provider says no"})
	if got != "provider says no" {
		t.Fatalf("expected provider message, got %q", got)
	}
}

func TestConfirmMessageDeclined(t *testing.T) {
	got := ConfirmMessage(&paymentdomain.GatewayError{Code: "card_declined"})
	want := "Your card was declined. Please try a different payment method or contact your bank."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBackendMessageSubstrings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Authentication failed for request", "We could not authenticate your payment. Please try again."},
		{"Card error: Your card was declined", "There was a problem with your card. Please check your details and try again."},
		{"Rate limit exceeded", "Too many requests. Please wait a moment and try again."},
		{"something else entirely", "something else entirely"},
	}
	for _, tc := range cases {
		if got := BackendMessage(tc.in); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestNetworkMessage(t *testing.T) {
	if got := NetworkMessage(context.DeadlineExceeded); got != msgTimeout {
		t.Fatalf("deadline: got %q", got)
	}
	if got := NetworkMessage(errors.New("dial tcp: i/o timeout")); got != msgTimeout {
		t.Fatalf("timeout substring: got %q", got)
	}
	if got := NetworkMessage(errors.New("session expired")); got != msgSessionExpired {
		t.Fatalf("session expired: got %q", got)
	}
	if got := NetworkMessage(errors.New("connection refused")); got != msgNetworkGeneric {
		t.Fatalf("generic: got %q", got)
	}
}
