package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/quotient/internal/catalog/repository"
	"github.com/smallbiznis/quotient/internal/clock"
	"github.com/smallbiznis/quotient/internal/config"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	discountservice "github.com/smallbiznis/quotient/internal/discount/service"
	"github.com/smallbiznis/quotient/internal/observability/metrics"
	"github.com/smallbiznis/quotient/internal/orgcontext"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	quoterepo "github.com/smallbiznis/quotient/internal/quote/repository"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type quoteFixture struct {
	svc        quotedomain.Service
	db         *gorm.DB
	ctx        context.Context
	clock      *clock.FakeClock
	orgID      snowflake.ID
	customerID snowflake.ID
	productID  snowflake.ID
	pbID       snowflake.ID
}

func setupQuoteService(t *testing.T) *quoteFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(
		&quotedomain.Quote{},
		&quotedomain.LineItem{},
		&discountdomain.AppliedDiscount{},
		&discountdomain.Discount{},
		&discountdomain.DiscountTier{},
		&customerdomain.Customer{},
		&catalogdomain.Product{},
		&catalogdomain.PriceBookEntry{},
		&catalogdomain.PriceTier{},
		&catalogdomain.Contract{},
		&catalogdomain.ContractPriceEntry{},
		&catalogdomain.TaxRate{},
		&ruledomain.Rule{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	org := snowflake.ID(7)
	state := "CA"
	customer := customerdomain.Customer{
		ID: 100, OrgID: org, Name: "Acme Corp", Country: "US", State: &state,
	}
	product := catalogdomain.Product{
		ID: 200, OrgID: org, Code: "SEAT", Name: "User Seat",
		IsTaxable: true, BillingFrequency: catalogdomain.Monthly, Active: true,
	}
	entry := catalogdomain.PriceBookEntry{
		ID: 300, OrgID: org, PriceBookID: 77, ProductID: product.ID,
		ListPrice: decimal.NewFromInt(20), Currency: "USD",
	}
	rate := catalogdomain.TaxRate{
		ID: 400, OrgID: org, Name: "CA State", Country: "US", State: &state,
		Rate: decimal.NewFromFloat(0.0725), Active: true,
	}
	rule := ruledomain.Rule{
		ID: 500, OrgID: org, Name: "Deep discount approval",
		Type: ruledomain.Pricing, Trigger: ruledomain.OnQuoteSave, Priority: 100,
		Condition: datatypes.JSON(`{"field":"quote.discountPercent","op":"gt","value":20}`),
		Action:    datatypes.JSON(`{"type":"REQUIRE_APPROVAL","message":"deep discount"}`),
		IsActive:  true,
	}
	for _, row := range []any{&customer, &product, &entry, &rate, &rule} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	svc := New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       fake,
		EngineCfg:   config.NewStaticEngineConfigHolder(config.DefaultEngineConfig()),
		Repo:        quoterepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Discount:    discountservice.New(discountservice.Params{Log: log}),
		Aggregator:  newTestAggregator(),
		Metrics:     metrics.New(prometheus.NewRegistry()),
	})

	return &quoteFixture{
		svc:        svc,
		db:         db,
		ctx:        orgcontext.WithOrgID(context.Background(), org),
		clock:      fake,
		orgID:      org,
		customerID: customer.ID,
		productID:  product.ID,
		pbID:       entry.PriceBookID,
	}
}

func TestQuoteLifecycle(t *testing.T) {
	f := setupQuoteService(t)

	created, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  f.customerID.String(),
		PriceBookID: f.pbID.String(),
	})
	assert.NoError(t, err)
	assert.Equal(t, quotedomain.StatusDraft, created.Status)
	assert.Equal(t, int32(12), created.TermMonths)

	resp, err := f.svc.AddLineItem(f.ctx, created.ID, quotedomain.AddLineRequest{
		ProductID: f.productID.String(),
		Quantity:  10,
	})
	assert.NoError(t, err)
	assert.Len(t, resp.Lines, 1)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal %s", resp.Subtotal)
	assert.True(t, resp.TaxAmount.Equal(decimal.NewFromFloat(14.50)), "tax %s", resp.TaxAmount)
	assert.True(t, resp.Total.Equal(decimal.NewFromFloat(214.50)), "total %s", resp.Total)
	assert.False(t, resp.RequiresApproval)

	// A 25% manual line discount pushes discountPercent past the 20%
	// approval threshold.
	resp, err = f.svc.ApplyDiscount(f.ctx, created.ID, quotedomain.ApplyDiscountRequest{
		LineItemID: resp.Lines[0].ID,
		Manual: &discountdomain.ManualDiscount{
			Type:   discountdomain.Percentage,
			Value:  decimal.NewFromInt(25),
			Reason: "strategic deal",
		},
	})
	assert.NoError(t, err)
	assert.True(t, resp.DiscountTotal.Equal(decimal.NewFromInt(50)), "discount %s", resp.DiscountTotal)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(150)))
	assert.True(t, resp.TaxAmount.Equal(decimal.NewFromFloat(10.88)), "tax %s", resp.TaxAmount)
	assert.True(t, resp.Total.Equal(decimal.NewFromFloat(160.88)), "total %s", resp.Total)
	assert.True(t, resp.RequiresApproval)
	assert.True(t, resp.MRR.Equal(decimal.NewFromInt(150)))
	assert.True(t, resp.TCV.Equal(decimal.NewFromInt(1800)))

	submitted, err := f.svc.Submit(f.ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, quotedomain.StatusPendingApproval, submitted.Status)

	// Submitted quotes are frozen.
	_, err = f.svc.AddLineItem(f.ctx, created.ID, quotedomain.AddLineRequest{
		ProductID: f.productID.String(),
		Quantity:  1,
	})
	assert.ErrorIs(t, err, quotedomain.ErrQuoteNotDraft)

	approved, err := f.svc.Transition(f.ctx, created.ID, quotedomain.StatusApproved)
	assert.NoError(t, err)
	assert.Equal(t, quotedomain.StatusApproved, approved.Status)

	_, err = f.svc.Transition(f.ctx, created.ID, quotedomain.StatusDraft)
	assert.ErrorIs(t, err, quotedomain.ErrInvalidTransition)
}

func TestTransitionCannotLeaveDraft(t *testing.T) {
	f := setupQuoteService(t)

	created, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  f.customerID.String(),
		PriceBookID: f.pbID.String(),
	})
	assert.NoError(t, err)

	resp, err := f.svc.AddLineItem(f.ctx, created.ID, quotedomain.AddLineRequest{
		ProductID: f.productID.String(),
		Quantity:  10,
	})
	assert.NoError(t, err)

	resp, err = f.svc.ApplyDiscount(f.ctx, created.ID, quotedomain.ApplyDiscountRequest{
		LineItemID: resp.Lines[0].ID,
		Manual: &discountdomain.ManualDiscount{
			Type:   discountdomain.Percentage,
			Value:  decimal.NewFromInt(25),
			Reason: "strategic deal",
		},
	})
	assert.NoError(t, err)
	assert.True(t, resp.RequiresApproval)

	// Leaving DRAFT only happens through Submit, never a raw transition.
	_, err = f.svc.Transition(f.ctx, created.ID, quotedomain.StatusApproved)
	assert.ErrorIs(t, err, quotedomain.ErrInvalidTransition)
	_, err = f.svc.Transition(f.ctx, created.ID, quotedomain.StatusPendingApproval)
	assert.ErrorIs(t, err, quotedomain.ErrInvalidTransition)

	submitted, err := f.svc.Submit(f.ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, quotedomain.StatusPendingApproval, submitted.Status)
}

func TestCancelFromDraft(t *testing.T) {
	f := setupQuoteService(t)

	created, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  f.customerID.String(),
		PriceBookID: f.pbID.String(),
	})
	assert.NoError(t, err)

	cancelled, err := f.svc.Transition(f.ctx, created.ID, quotedomain.StatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, quotedomain.StatusCancelled, cancelled.Status)
}

func TestContractPricingUsesQuoteClock(t *testing.T) {
	f := setupQuoteService(t)

	// The contract window brackets the fixture clock but not wall time,
	// so only the injected clock can pick it up.
	contract := catalogdomain.Contract{
		ID:         600,
		OrgID:      f.orgID,
		CustomerID: f.customerID,
		Status:     catalogdomain.ContractActive,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, f.db.Create(&contract).Error)
	assert.NoError(t, f.db.Create(&catalogdomain.ContractPriceEntry{
		ID:         601,
		OrgID:      f.orgID,
		ContractID: contract.ID,
		ProductID:  f.productID,
		FixedPrice: decimal.NewFromInt(15),
	}).Error)

	created, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  f.customerID.String(),
		PriceBookID: f.pbID.String(),
	})
	assert.NoError(t, err)

	resp, err := f.svc.AddLineItem(f.ctx, created.ID, quotedomain.AddLineRequest{
		ProductID: f.productID.String(),
		Quantity:  10,
	})
	assert.NoError(t, err)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.NewFromInt(15)), "unit price %s", resp.Lines[0].UnitPrice)
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(150)), "subtotal %s", resp.Subtotal)
}

func TestSubmitWithoutApprovalRule(t *testing.T) {
	f := setupQuoteService(t)

	created, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  f.customerID.String(),
		PriceBookID: f.pbID.String(),
		TermMonths:  24,
	})
	assert.NoError(t, err)
	assert.Equal(t, int32(24), created.TermMonths)

	_, err = f.svc.AddLineItem(f.ctx, created.ID, quotedomain.AddLineRequest{
		ProductID: f.productID.String(),
		Quantity:  2,
	})
	assert.NoError(t, err)

	// No discount, so the approval rule stays quiet and submit approves.
	submitted, err := f.svc.Submit(f.ctx, created.ID)
	assert.NoError(t, err)
	assert.Equal(t, quotedomain.StatusApproved, submitted.Status)
}

func TestCreateUnknownCustomer(t *testing.T) {
	f := setupQuoteService(t)

	_, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  snowflake.ID(9999).String(),
		PriceBookID: f.pbID.String(),
	})
	assert.ErrorIs(t, err, quotedomain.ErrCustomerNotFound)
}

func TestRemoveDiscountRestoresTotals(t *testing.T) {
	f := setupQuoteService(t)

	created, err := f.svc.Create(f.ctx, quotedomain.CreateRequest{
		CustomerID:  f.customerID.String(),
		PriceBookID: f.pbID.String(),
	})
	assert.NoError(t, err)

	resp, err := f.svc.AddLineItem(f.ctx, created.ID, quotedomain.AddLineRequest{
		ProductID: f.productID.String(),
		Quantity:  5,
	})
	assert.NoError(t, err)
	total := resp.Total

	resp, err = f.svc.ApplyDiscount(f.ctx, created.ID, quotedomain.ApplyDiscountRequest{
		Manual: &discountdomain.ManualDiscount{
			Type:   discountdomain.FixedAmount,
			Value:  decimal.NewFromInt(10),
			Reason: "goodwill",
		},
	})
	assert.NoError(t, err)
	assert.Len(t, resp.Discounts, 1)
	assert.True(t, resp.Total.LessThan(total))

	resp, err = f.svc.RemoveDiscount(f.ctx, created.ID, resp.Discounts[0].ID)
	assert.NoError(t, err)
	assert.Empty(t, resp.Discounts)
	assert.True(t, resp.Total.Equal(total), "total %s want %s", resp.Total, total)
}
