package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/mewayz/billing/internal/clock"
	"github.com/mewayz/billing/internal/config"
	"github.com/mewayz/billing/internal/migration"
	"github.com/mewayz/billing/internal/observability"
	"github.com/mewayz/billing/internal/server"
	"github.com/mewayz/billing/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface plus the domain modules it serves
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
