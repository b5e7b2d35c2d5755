package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	checkoutdomain "github.com/mewayz/billing/internal/checkout/domain"
	"github.com/mewayz/billing/internal/config"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// The embedded migrations are written for postgres; other
			// dialects (sqlite for local hacking) use the schema derived
			// from the model.
			return conn.AutoMigrate(&checkoutdomain.CheckoutAttempt{})
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
