package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindProduct(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Product, error)
	ListProducts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]Product, error)
	FindPriceBookEntry(ctx context.Context, db *gorm.DB, orgID, priceBookID, productID snowflake.ID) (*PriceBookEntry, error)
	ListPriceBookEntries(ctx context.Context, db *gorm.DB, orgID, priceBookID snowflake.ID, productIDs []snowflake.ID) ([]PriceBookEntry, error)
	FindEffectiveContract(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, now time.Time) (*Contract, error)
	ListTaxRates(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]TaxRate, error)
}
