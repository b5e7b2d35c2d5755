package stripe

import (
	"context"
	"errors"
	"strings"

	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewGateway(cfg paymentdomain.AdapterConfig) (paymentdomain.Gateway, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	api := &client.API{}
	api.Init(key, nil)

	return &Gateway{api: api}, nil
}

type Gateway struct {
	api *client.API
}

func (g *Gateway) CreatePaymentMethod(ctx context.Context, card paymentdomain.CardDetails, billing paymentdomain.BillingDetails) (paymentdomain.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(card.ExpMonth),
			ExpYear:  stripe.Int64(card.ExpYear),
			CVC:      stripe.String(card.CVC),
		},
		BillingDetails: &stripe.PaymentMethodBillingDetailsParams{
			Email: stripe.String(billing.Email),
			Name:  stripe.String(billing.Name),
		},
	}
	params.Context = ctx

	method, err := g.api.PaymentMethods.New(params)
	if err != nil {
		return paymentdomain.PaymentMethod{}, translateError(err)
	}

	return paymentdomain.PaymentMethod{ID: method.ID}, nil
}

func (g *Gateway) ConfirmPayment(ctx context.Context, clientSecret string) error {
	intentID, ok := intentIDFromClientSecret(clientSecret)
	if !ok {
		return &paymentdomain.GatewayError{Code: "invalid_client_secret", Message: "malformed payment intent client secret"}
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return translateError(err)
	}

	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
		return nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return &paymentdomain.GatewayError{Code: "card_declined", Message: "payment was not completed"}
	default:
		return &paymentdomain.GatewayError{Code: "processing_error", Message: "unexpected payment status " + string(intent.Status)}
	}
}

// translateError normalizes a stripe failure into a GatewayError with a
// stable code. Decline codes are more specific than the error code and
// win when present.
func translateError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}

	code := string(stripeErr.Code)
	if stripeErr.DeclineCode != "" {
		code = string(stripeErr.DeclineCode)
	}
	return &paymentdomain.GatewayError{
		Code:    code,
		Message: stripeErr.Msg,
	}
}

func intentIDFromClientSecret(clientSecret string) (string, bool) {
	clientSecret = strings.TrimSpace(clientSecret)
	idx := strings.Index(clientSecret, "_secret")
	if idx <= 0 {
		return "", false
	}
	return clientSecret[:idx], true
}
