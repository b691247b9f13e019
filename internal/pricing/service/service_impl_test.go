package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return &Service{log: zap.NewNop()}
}

func TestResolve_ListPrice(t *testing.T) {
	svc := newTestService()

	entry := &catalogdomain.PriceBookEntry{
		ProductID: 1,
		ListPrice: decimal.NewFromInt(100),
	}

	res, err := svc.Resolve(entry, 10, nil, time.Now())
	assert.NoError(t, err)
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(100)), "unit %s", res.UnitPrice)
	assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(1000)), "total %s", res.TotalPrice)
	assert.False(t, res.TierApplied)
	assert.False(t, res.ContractApplied())
}

func TestResolve_UnitPriceTiers(t *testing.T) {
	svc := newTestService()

	ten := int64(10)
	fifty := int64(50)
	entry := &catalogdomain.PriceBookEntry{
		ProductID: 1,
		ListPrice: decimal.NewFromInt(12),
		Tiers: []catalogdomain.PriceTier{
			{MinQuantity: 1, MaxQuantity: &ten, TierPrice: decimal.NewFromInt(10), TierType: catalogdomain.UnitPrice},
			{MinQuantity: 11, MaxQuantity: &fifty, TierPrice: decimal.NewFromInt(8), TierType: catalogdomain.UnitPrice},
			{MinQuantity: 51, TierPrice: decimal.NewFromInt(6), TierType: catalogdomain.UnitPrice},
		},
	}

	cases := []struct {
		qty   int64
		unit  int64
		total int64
	}{
		{1, 10, 10},
		{10, 10, 100}, // inclusive upper bound
		{11, 8, 88},   // next tier starts
		{50, 8, 400},
		{51, 6, 306},
		{500, 6, 3000}, // open-ended tier
	}
	for _, tc := range cases {
		res, err := svc.Resolve(entry, tc.qty, nil, time.Now())
		assert.NoError(t, err)
		assert.True(t, res.TierApplied, "qty %d", tc.qty)
		assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(tc.unit)), "qty %d unit %s", tc.qty, res.UnitPrice)
		assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(tc.total)), "qty %d total %s", tc.qty, res.TotalPrice)
	}
}

func TestResolve_FlatPriceTier(t *testing.T) {
	svc := newTestService()

	hundred := int64(100)
	entry := &catalogdomain.PriceBookEntry{
		ProductID: 1,
		ListPrice: decimal.NewFromInt(15),
		Tiers: []catalogdomain.PriceTier{
			{MinQuantity: 1, MaxQuantity: &hundred, TierPrice: decimal.NewFromInt(500), TierType: catalogdomain.FlatPrice},
		},
	}

	res, err := svc.Resolve(entry, 40, nil, time.Now())
	assert.NoError(t, err)
	// The flat total stays exact; the unit price is derived.
	assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(500)), "total %s", res.TotalPrice)
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromFloat(12.5)), "unit %s", res.UnitPrice)

	// Same flat total regardless of quantity inside the range.
	res2, err := svc.Resolve(entry, 99, nil, time.Now())
	assert.NoError(t, err)
	assert.True(t, res2.TotalPrice.Equal(decimal.NewFromInt(500)))
}

func TestResolve_ContractFixedPrice(t *testing.T) {
	svc := newTestService()
	now := time.Now()

	entry := &catalogdomain.PriceBookEntry{
		ProductID: 7,
		ListPrice: decimal.NewFromInt(100),
	}
	contract := &catalogdomain.Contract{
		ID:        99,
		Status:    catalogdomain.ContractActive,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		PriceEntries: []catalogdomain.ContractPriceEntry{
			{ProductID: 7, FixedPrice: decimal.NewFromInt(80)},
		},
	}

	res, err := svc.Resolve(entry, 5, contract, now)
	assert.NoError(t, err)
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(80)))
	assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(400)))
	assert.True(t, res.ContractApplied())
	if assert.NotNil(t, res.Contract) {
		assert.Equal(t, pricingdomain.OverrideFixed, res.Contract.PriceType)
		assert.True(t, res.Contract.OriginalPrice.Equal(decimal.NewFromInt(100)))
	}
}

func TestResolve_ContractDiscountPercent(t *testing.T) {
	svc := newTestService()
	now := time.Now()

	pct := decimal.NewFromInt(15)
	entry := &catalogdomain.PriceBookEntry{
		ProductID: 7,
		ListPrice: decimal.NewFromInt(200),
	}
	contract := &catalogdomain.Contract{
		ID:              99,
		Status:          catalogdomain.ContractActive,
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(time.Hour),
		DiscountPercent: &pct,
	}

	res, err := svc.Resolve(entry, 2, contract, now)
	assert.NoError(t, err)
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(170)), "unit %s", res.UnitPrice)
	assert.True(t, res.TotalPrice.Equal(decimal.NewFromInt(340)))
	if assert.NotNil(t, res.Contract) {
		assert.Equal(t, pricingdomain.OverridePercentage, res.Contract.PriceType)
	}
}

func TestResolve_ExpiredContractIgnored(t *testing.T) {
	svc := newTestService()
	now := time.Now()

	entry := &catalogdomain.PriceBookEntry{
		ProductID: 7,
		ListPrice: decimal.NewFromInt(100),
	}
	contract := &catalogdomain.Contract{
		ID:        99,
		Status:    catalogdomain.ContractActive,
		StartDate: now.Add(-48 * time.Hour),
		EndDate:   now.Add(-24 * time.Hour),
		PriceEntries: []catalogdomain.ContractPriceEntry{
			{ProductID: 7, FixedPrice: decimal.NewFromInt(1)},
		},
	}

	res, err := svc.Resolve(entry, 1, contract, now)
	assert.NoError(t, err)
	assert.False(t, res.ContractApplied())
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(100)))

	draft := &catalogdomain.Contract{
		ID:        100,
		Status:    catalogdomain.ContractDraft,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
	}
	res, err = svc.Resolve(entry, 1, draft, now)
	assert.NoError(t, err)
	assert.Nil(t, res.Contract)
}

func TestResolve_ContractOverridesTierPrice(t *testing.T) {
	svc := newTestService()
	now := time.Now()

	ten := int64(10)
	entry := &catalogdomain.PriceBookEntry{
		ProductID: snowflake.ID(3),
		ListPrice: decimal.NewFromInt(50),
		Tiers: []catalogdomain.PriceTier{
			{MinQuantity: 1, MaxQuantity: &ten, TierPrice: decimal.NewFromInt(40), TierType: catalogdomain.UnitPrice},
		},
	}
	contract := &catalogdomain.Contract{
		ID:        1,
		Status:    catalogdomain.ContractActive,
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		PriceEntries: []catalogdomain.ContractPriceEntry{
			{ProductID: snowflake.ID(3), FixedPrice: decimal.NewFromInt(30)},
		},
	}

	res, err := svc.Resolve(entry, 5, contract, now)
	assert.NoError(t, err)
	// Contract wins over the tier; the tier price is kept as the original.
	assert.True(t, res.UnitPrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, res.Contract.OriginalPrice.Equal(decimal.NewFromInt(40)))
}

func TestResolve_Margin(t *testing.T) {
	svc := newTestService()

	cost := decimal.NewFromInt(60)
	entry := &catalogdomain.PriceBookEntry{
		ProductID: 1,
		ListPrice: decimal.NewFromInt(100),
		Cost:      &cost,
	}

	res, err := svc.Resolve(entry, 1, nil, time.Now())
	assert.NoError(t, err)
	if assert.NotNil(t, res.Margin) {
		assert.True(t, res.Margin.Equal(decimal.NewFromInt(40)), "margin %s", res.Margin)
	}
}

func TestResolve_InvalidInputs(t *testing.T) {
	svc := newTestService()

	_, err := svc.Resolve(nil, 1, nil, time.Now())
	assert.ErrorIs(t, err, pricingdomain.ErrEntryNotFound)

	entry := &catalogdomain.PriceBookEntry{ListPrice: decimal.NewFromInt(10)}
	_, err = svc.Resolve(entry, 0, nil, time.Now())
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidQuantity)

	_, err = svc.Resolve(entry, -3, nil, time.Now())
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidQuantity)
}

func TestResolve_PriceNeverNegative(t *testing.T) {
	svc := newTestService()
	now := time.Now()

	pct := decimal.NewFromInt(100)
	entry := &catalogdomain.PriceBookEntry{
		ProductID: 1,
		ListPrice: decimal.NewFromInt(100),
	}
	contract := &catalogdomain.Contract{
		ID:              1,
		Status:          catalogdomain.ContractActive,
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(time.Hour),
		DiscountPercent: &pct,
	}

	res, err := svc.Resolve(entry, 1, contract, now)
	assert.NoError(t, err)
	assert.False(t, res.UnitPrice.IsNegative())
	assert.True(t, res.UnitPrice.IsZero())
}
