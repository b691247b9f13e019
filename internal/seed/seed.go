package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	dbpkg "github.com/smallbiznis/quotient/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoCustomerName = "Acme Corp"
	demoPriceBookID  = snowflake.ID(1)
)

// EnsureDemoCatalog seeds a small catalog, a demo customer and the
// default approval rule so a fresh install can price a quote end to end.
// Idempotent: rows are matched by org and code before insert.
func EnsureDemoCatalog(db *gorm.DB, orgID int64, engineCfg config.EngineConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	org := snowflake.ID(orgID)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCustomer(ctx, tx, node, org); err != nil {
			return err
		}
		if err := ensureProducts(ctx, tx, node, org); err != nil {
			return err
		}
		if err := ensureTaxRates(ctx, tx, node, org); err != nil {
			return err
		}
		if err := ensureVolumeDiscount(ctx, tx, node, org); err != nil {
			return err
		}
		return ensureApprovalRule(ctx, tx, node, org, engineCfg)
	})
	if dbpkg.IsDuplicateKeyErr(err) {
		// Another instance seeded the same org first.
		return nil
	}
	return err
}

func ensureCustomer(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&customerdomain.Customer{}).
		Where("org_id = ? AND name = ?", orgID, demoCustomerName).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	state := "CA"
	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&customerdomain.Customer{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      demoCustomerName,
		Email:     "billing@acme.example",
		Country:   "US",
		State:     &state,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

func ensureProducts(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	type seedProduct struct {
		code      string
		name      string
		frequency catalogdomain.BillingFrequency
		listPrice decimal.Decimal
		cost      decimal.Decimal
		tiers     []catalogdomain.PriceTier
	}

	hundred := int64(100)
	products := []seedProduct{
		{
			code:      "PLATFORM-STD",
			name:      "Platform Standard",
			frequency: catalogdomain.Monthly,
			listPrice: decimal.NewFromInt(99),
			cost:      decimal.NewFromInt(40),
		},
		{
			code:      "SEAT",
			name:      "User Seat",
			frequency: catalogdomain.Monthly,
			listPrice: decimal.NewFromInt(20),
			cost:      decimal.NewFromInt(5),
			tiers: []catalogdomain.PriceTier{
				{MinQuantity: 1, MaxQuantity: &hundred, TierPrice: decimal.NewFromInt(20), TierType: catalogdomain.UnitPrice},
				{MinQuantity: 101, TierPrice: decimal.NewFromInt(16), TierType: catalogdomain.UnitPrice},
			},
		},
		{
			code:      "ONBOARDING",
			name:      "Onboarding Package",
			frequency: catalogdomain.OneTime,
			listPrice: decimal.NewFromInt(2500),
			cost:      decimal.NewFromInt(1200),
		},
	}

	now := time.Now().UTC()
	for _, p := range products {
		var count int64
		if err := tx.WithContext(ctx).Model(&catalogdomain.Product{}).
			Where("org_id = ? AND code = ?", orgID, p.code).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		product := catalogdomain.Product{
			ID:               node.Generate(),
			OrgID:            orgID,
			Code:             p.code,
			Name:             p.name,
			BillingFrequency: p.frequency,
			IsTaxable:        true,
			Active:           true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			return err
		}

		cost := p.cost
		entry := catalogdomain.PriceBookEntry{
			ID:          node.Generate(),
			OrgID:       orgID,
			PriceBookID: demoPriceBookID,
			ProductID:   product.ID,
			ListPrice:   p.listPrice,
			Cost:        &cost,
			Currency:    "USD",
			Tiers:       p.tiers,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := entry.ValidateTiers(); err != nil {
			return err
		}
		entry.Tiers = nil
		if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
			return err
		}
		for _, t := range p.tiers {
			tier := t
			tier.ID = node.Generate()
			tier.OrgID = orgID
			tier.PriceBookEntryID = entry.ID
			tier.CreatedAt = now
			tier.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&tier).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureTaxRates(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&catalogdomain.TaxRate{}).
		Where("org_id = ? AND country = ?", orgID, "US").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	state := "CA"
	now := time.Now().UTC()
	rates := []catalogdomain.TaxRate{
		{
			ID: node.Generate(), OrgID: orgID, Name: "CA State Tax",
			Rate: decimal.NewFromFloat(0.0725), Country: "US", State: &state,
			Active: true, CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: node.Generate(), OrgID: orgID, Name: "CA District Tax",
			Rate: decimal.NewFromFloat(0.01), Country: "US", State: &state,
			Active: true, CreatedAt: now, UpdatedAt: now,
		},
	}
	for i := range rates {
		if err := tx.WithContext(ctx).Create(&rates[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureVolumeDiscount(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&discountdomain.Discount{}).
		Where("org_id = ? AND code = ?", orgID, "VOLUME10").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	minQty := int64(10)
	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&discountdomain.Discount{
		ID:          node.Generate(),
		OrgID:       orgID,
		Code:        "VOLUME10",
		Name:        "Volume 10%",
		Type:        discountdomain.Percentage,
		Scope:       discountdomain.ScopeLineItem,
		Value:       decimal.NewFromInt(10),
		MinQuantity: &minQty,
		Stackable:   false,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error
}

func ensureApprovalRule(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID, engineCfg config.EngineConfig) error {
	const ruleName = "Deep discount approval"

	var count int64
	if err := tx.WithContext(ctx).Model(&ruledomain.Rule{}).
		Where("org_id = ? AND name = ?", orgID, ruleName).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	condition := fmt.Sprintf(`{"field":"quote.discountPercent","op":"gt","value":%g}`, engineCfg.ApprovalDiscountPercent)
	action := fmt.Sprintf(`{"type":"REQUIRE_APPROVAL","message":"Discount exceeds %g%% and needs sign-off","approverRole":"sales_manager"}`, engineCfg.ApprovalDiscountPercent)

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&ruledomain.Rule{
		ID:        node.Generate(),
		OrgID:     orgID,
		Name:      ruleName,
		Type:      ruledomain.Pricing,
		Trigger:   ruledomain.OnQuoteSave,
		Priority:  100,
		Condition: datatypes.JSON(condition),
		Action:    datatypes.JSON(action),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}
