package migration

import (
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	"github.com/smallbiznis/quotient/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, engineCfg *config.EngineConfigHolder) error {
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Versioned migrations target postgres; dev databases
			// derive the schema from the models instead.
			if err := conn.AutoMigrate(
				&customerdomain.Customer{},
				&catalogdomain.Product{},
				&catalogdomain.PriceBookEntry{},
				&catalogdomain.PriceTier{},
				&catalogdomain.Contract{},
				&catalogdomain.ContractPriceEntry{},
				&catalogdomain.TaxRate{},
				&discountdomain.Discount{},
				&discountdomain.DiscountTier{},
				&ruledomain.Rule{},
				&quotedomain.Quote{},
				&quotedomain.LineItem{},
				&discountdomain.AppliedDiscount{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultOrgID != 0 {
			return seed.EnsureDemoCatalog(conn, cfg.DefaultOrgID, engineCfg.Get())
		}
		return nil
	}),
)
