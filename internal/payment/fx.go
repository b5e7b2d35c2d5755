package payment

import (
	"github.com/mewayz/billing/internal/config"
	"github.com/mewayz/billing/internal/payment/adapters"
	"github.com/mewayz/billing/internal/payment/adapters/stripe"
	paymentdomain "github.com/mewayz/billing/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.gateway",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			stripe.NewFactory(),
		)
	}),
	fx.Provide(NewGateway),
)

// NewGateway builds the configured payment gateway. Stripe is the only
// provider shipped today; the registry keeps the door open for more.
func NewGateway(cfg config.Config, registry *adapters.Registry) (paymentdomain.Gateway, error) {
	return registry.NewGateway("stripe", paymentdomain.AdapterConfig{
		APIKey: cfg.Stripe.SecretKey,
	})
}
