package migration

import (
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/config"
	invoicedomain "github.com/smallbiznis/faktur/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/faktur/internal/payment/domain"
	"github.com/smallbiznis/faktur/internal/seed"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL path is postgres-only. Other dialects sync
		// the schema straight from the models.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&userdomain.User{},
				&invoicedomain.Invoice{},
				&invoicedomain.InvoiceItem{},
				&paymentdomain.Payment{},
				&authdomain.RevokedToken{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureAdmin(conn, cfg)
	}),
)
