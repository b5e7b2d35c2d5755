package checkout

import (
	"go.uber.org/fx"

	"github.com/mewayz/billing/internal/checkout/repository"
	"github.com/mewayz/billing/internal/checkout/service"
)

var Module = fx.Module("checkout.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
