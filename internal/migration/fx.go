package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/fakturo/fakturo/internal/config"
	customerdomain "github.com/fakturo/fakturo/internal/customer/domain"
	invoicedomain "github.com/fakturo/fakturo/internal/invoice/domain"
	"github.com/fakturo/fakturo/internal/invoice/numbering"
	merchantdomain "github.com/fakturo/fakturo/internal/merchant/domain"
	recurringdomain "github.com/fakturo/fakturo/internal/recurring/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned migrations target Postgres. Other database types are
		// only used for local development and rely on schema sync.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&merchantdomain.Merchant{},
				&customerdomain.Customer{},
				&invoicedomain.Invoice{},
				&recurringdomain.Template{},
				&numbering.Sequence{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		return RunMigrations(sqlDB)
	}),
)
