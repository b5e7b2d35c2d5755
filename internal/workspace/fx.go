package workspace

import "go.uber.org/fx"

var Module = fx.Module("workspace.client",
	fx.Provide(NewClient),
)
