package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*catalogdomain.Product, error) {
	var product catalogdomain.Product
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) ListProducts(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]catalogdomain.Product, error) {
	var items []catalogdomain.Product
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)
	if len(ids) > 0 {
		stmt = stmt.Where("id IN ?", ids)
	}
	err := stmt.Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindPriceBookEntry(ctx context.Context, db *gorm.DB, orgID, priceBookID, productID snowflake.ID) (*catalogdomain.PriceBookEntry, error) {
	var entry catalogdomain.PriceBookEntry
	err := db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_quantity ASC")
		}).
		Where("org_id = ? AND price_book_id = ? AND product_id = ?", orgID, priceBookID, productID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) ListPriceBookEntries(ctx context.Context, db *gorm.DB, orgID, priceBookID snowflake.ID, productIDs []snowflake.ID) ([]catalogdomain.PriceBookEntry, error) {
	var items []catalogdomain.PriceBookEntry
	stmt := db.WithContext(ctx).
		Preload("Tiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_quantity ASC")
		}).
		Where("org_id = ? AND price_book_id = ?", orgID, priceBookID)
	if len(productIDs) > 0 {
		stmt = stmt.Where("product_id IN ?", productIDs)
	}
	err := stmt.Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindEffectiveContract(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, now time.Time) (*catalogdomain.Contract, error) {
	var contract catalogdomain.Contract
	err := db.WithContext(ctx).
		Preload("PriceEntries").
		Where("org_id = ? AND customer_id = ? AND status = ?", orgID, customerID, catalogdomain.ContractActive).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Order("start_date DESC").
		First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *repo) ListTaxRates(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]catalogdomain.TaxRate, error) {
	var items []catalogdomain.TaxRate
	err := db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("country ASC, state ASC NULLS LAST").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
