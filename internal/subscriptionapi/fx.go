package subscriptionapi

import "go.uber.org/fx"

var Module = fx.Module("subscriptionapi.client",
	fx.Provide(NewClient),
)
