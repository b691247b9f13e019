package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	discountservice "github.com/smallbiznis/quotient/internal/discount/service"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	pricingservice "github.com/smallbiznis/quotient/internal/pricing/service"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	ruleservice "github.com/smallbiznis/quotient/internal/rule/service"
	taxservice "github.com/smallbiznis/quotient/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func newTestAggregator() *Aggregator {
	log := zap.NewNop()
	return NewAggregator(AggregatorParams{
		Log:      log,
		Pricing:  pricingservice.New(pricingservice.Params{Log: log}),
		Discount: discountservice.New(discountservice.Params{Log: log}),
		Tax:      taxservice.New(taxservice.Params{Log: log}),
		Rules:    ruleservice.New(ruleservice.Params{Log: log}),
	})
}

func strPtr(s string) *string { return &s }

// mixedSnapshot builds a quote with a taxable monthly line carrying a 10%
// line discount, a non-taxable one-time line, a fixed 100 quote-level
// discount and a single 10% tax rate.
func mixedSnapshot() *quotedomain.Snapshot {
	lineID := snowflake.ID(100)
	otherLineID := snowflake.ID(101)

	return &quotedomain.Snapshot{
		Quote: &quotedomain.Quote{
			ID:         1,
			OrgID:      1,
			CustomerID: 2,
			Status:     quotedomain.StatusDraft,
			TermMonths: 12,
		},
		Lines: []*quotedomain.LineItem{
			{ID: lineID, OrgID: 1, QuoteID: 1, ProductID: 10, Quantity: 10},
			{ID: otherLineID, OrgID: 1, QuoteID: 1, ProductID: 11, Quantity: 2},
		},
		Applied: []*discountdomain.AppliedDiscount{
			{
				ID: 200, OrgID: 1, QuoteID: 1, LineItemID: &lineID,
				Type: discountdomain.Percentage, Scope: discountdomain.ScopeLineItem,
				Value: decimal.NewFromInt(10), Reason: "line deal",
			},
			{
				ID: 201, OrgID: 1, QuoteID: 1,
				Type: discountdomain.FixedAmount, Scope: discountdomain.ScopeQuote,
				Value: decimal.NewFromInt(100), Reason: "quote deal",
			},
		},
		Customer: &customerdomain.Customer{ID: 2, OrgID: 1, Country: "US", State: strPtr("CA")},
		Products: map[snowflake.ID]*catalogdomain.Product{
			10: {ID: 10, IsTaxable: true, BillingFrequency: catalogdomain.Monthly},
			11: {ID: 11, IsTaxable: false, BillingFrequency: catalogdomain.OneTime},
		},
		PriceBook: map[snowflake.ID]*catalogdomain.PriceBookEntry{
			10: {ID: 20, ProductID: 10, ListPrice: decimal.NewFromInt(100)},
			11: {ID: 21, ProductID: 11, ListPrice: decimal.NewFromInt(250)},
		},
		TaxRates: []catalogdomain.TaxRate{
			{ID: 30, Name: "CA State", Country: "US", State: strPtr("CA"), Rate: decimal.NewFromFloat(0.10), Active: true},
		},
	}
}

func TestRecompute_FullPass(t *testing.T) {
	agg := newTestAggregator()
	snap := mixedSnapshot()

	_, err := agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.NoError(t, err)

	quote := snap.Quote
	// Line 1: 10 x 100 = 1000, minus 10% = 900. Line 2: 2 x 250 = 500.
	assert.True(t, snap.Lines[0].NetPrice.Equal(decimal.NewFromInt(900)), "line1 net %s", snap.Lines[0].NetPrice)
	assert.True(t, snap.Lines[1].NetPrice.Equal(decimal.NewFromInt(500)))
	assert.True(t, quote.Subtotal.Equal(decimal.NewFromInt(1400)), "subtotal %s", quote.Subtotal)

	// DiscountTotal sums the line and quote portions.
	assert.True(t, quote.DiscountTotal.Equal(decimal.NewFromInt(200)), "discount total %s", quote.DiscountTotal)

	// Tax base: 900 taxable, minus the taxable share of the 100 quote
	// discount (100 * 900/1400), times the 10% rate.
	assert.True(t, quote.TaxAmount.Equal(decimal.NewFromFloat(83.57)), "tax %s", quote.TaxAmount)

	// Total: (1400 - 100) + 83.57.
	assert.True(t, quote.Total.Equal(decimal.NewFromFloat(1383.57)), "total %s", quote.Total)

	// Recurring: the monthly line carries MRR, the one-time line feeds TCV.
	assert.True(t, quote.MRR.Equal(decimal.NewFromInt(900)), "mrr %s", quote.MRR)
	assert.True(t, quote.ARR.Equal(decimal.NewFromInt(10800)), "arr %s", quote.ARR)
	assert.True(t, quote.TCV.Equal(decimal.NewFromInt(11300)), "tcv %s", quote.TCV)
}

func TestRecompute_Idempotent(t *testing.T) {
	agg := newTestAggregator()
	snap := mixedSnapshot()
	now := time.Now()

	_, err := agg.Recompute(snap, ruledomain.OnQuoteSave, now)
	assert.NoError(t, err)

	first := *snap.Quote
	firstLine := *snap.Lines[0]

	_, err = agg.Recompute(snap, ruledomain.OnQuoteSave, now)
	assert.NoError(t, err)

	assert.True(t, snap.Quote.Subtotal.Equal(first.Subtotal))
	assert.True(t, snap.Quote.DiscountTotal.Equal(first.DiscountTotal))
	assert.True(t, snap.Quote.TaxAmount.Equal(first.TaxAmount))
	assert.True(t, snap.Quote.Total.Equal(first.Total))
	assert.True(t, snap.Quote.MRR.Equal(first.MRR))
	assert.True(t, snap.Quote.TCV.Equal(first.TCV))
	assert.True(t, snap.Lines[0].NetPrice.Equal(firstLine.NetPrice))
	assert.True(t, snap.Lines[0].Discount.Equal(firstLine.Discount))
}

func TestRecompute_BundleParentZero(t *testing.T) {
	agg := newTestAggregator()

	parentID := snowflake.ID(100)
	snap := &quotedomain.Snapshot{
		Quote: &quotedomain.Quote{ID: 1, Status: quotedomain.StatusDraft, TermMonths: 12},
		Lines: []*quotedomain.LineItem{
			{ID: parentID, QuoteID: 1, ProductID: 10, Quantity: 1},
			{ID: 101, QuoteID: 1, ProductID: 11, ParentLineID: &parentID, Quantity: 4},
		},
		Customer: &customerdomain.Customer{ID: 2, Country: "US"},
		Products: map[snowflake.ID]*catalogdomain.Product{
			10: {ID: 10, IsBundle: true, IsTaxable: true},
			11: {ID: 11, IsTaxable: true, BillingFrequency: catalogdomain.Monthly},
		},
		PriceBook: map[snowflake.ID]*catalogdomain.PriceBookEntry{
			11: {ID: 21, ProductID: 11, ListPrice: decimal.NewFromInt(25)},
		},
	}

	_, err := agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.NoError(t, err)

	assert.True(t, snap.Lines[0].NetPrice.IsZero())
	assert.True(t, snap.Lines[0].UnitPrice.IsZero())
	assert.True(t, snap.Lines[1].NetPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, snap.Quote.Subtotal.Equal(decimal.NewFromInt(100)))
}

func TestRecompute_MissingEntryFatal(t *testing.T) {
	agg := newTestAggregator()

	snap := &quotedomain.Snapshot{
		Quote: &quotedomain.Quote{ID: 1, Status: quotedomain.StatusDraft},
		Lines: []*quotedomain.LineItem{
			{ID: 100, QuoteID: 1, ProductID: 10, Quantity: 1},
		},
		Customer: &customerdomain.Customer{ID: 2, Country: "US"},
		Products: map[snowflake.ID]*catalogdomain.Product{
			10: {ID: 10, IsTaxable: true},
		},
		PriceBook: map[snowflake.ID]*catalogdomain.PriceBookEntry{},
	}

	_, err := agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.ErrorIs(t, err, pricingdomain.ErrEntryNotFound)
}

func TestRecompute_TieredDiscountFollowsQuantity(t *testing.T) {
	agg := newTestAggregator()
	now := time.Now()

	lineID := snowflake.ID(100)
	discountID := snowflake.ID(40)
	fifty := int64(50)

	snap := &quotedomain.Snapshot{
		Quote: &quotedomain.Quote{ID: 1, Status: quotedomain.StatusDraft, TermMonths: 12},
		Lines: []*quotedomain.LineItem{
			{ID: lineID, QuoteID: 1, ProductID: 10, Quantity: 20},
		},
		Applied: []*discountdomain.AppliedDiscount{
			{
				ID: 200, QuoteID: 1, LineItemID: &lineID, DiscountID: &discountID,
				Type: discountdomain.Percentage, Scope: discountdomain.ScopeLineItem,
				Value: decimal.NewFromInt(5),
			},
		},
		Customer: &customerdomain.Customer{ID: 2, Country: "US"},
		Products: map[snowflake.ID]*catalogdomain.Product{
			10: {ID: 10, IsTaxable: false},
		},
		PriceBook: map[snowflake.ID]*catalogdomain.PriceBookEntry{
			10: {ID: 20, ProductID: 10, ListPrice: decimal.NewFromInt(10)},
		},
		Discounts: map[snowflake.ID]*discountdomain.Discount{
			discountID: {
				ID: discountID, Type: discountdomain.Percentage, Scope: discountdomain.ScopeLineItem,
				Value: decimal.NewFromInt(5), IsActive: true,
				Tiers: []discountdomain.DiscountTier{
					{TierNumber: 1, MinQuantity: 1, MaxQuantity: &fifty, Value: decimal.NewFromInt(5)},
					{TierNumber: 2, MinQuantity: 51, Value: decimal.NewFromInt(15)},
				},
			},
		},
	}

	_, err := agg.Recompute(snap, ruledomain.OnQuantityChange, now)
	assert.NoError(t, err)
	// Quantity 20: first tier, 5% of 200.
	assert.True(t, snap.Applied[0].Value.Equal(decimal.NewFromInt(5)))
	assert.True(t, snap.Lines[0].Discount.Equal(decimal.NewFromInt(10)))

	// Raising the quantity into the second tier re-resolves the value.
	snap.Lines[0].Quantity = 60
	_, err = agg.Recompute(snap, ruledomain.OnQuantityChange, now)
	assert.NoError(t, err)
	assert.True(t, snap.Applied[0].Value.Equal(decimal.NewFromInt(15)))
	// 15% of 600.
	assert.True(t, snap.Lines[0].Discount.Equal(decimal.NewFromInt(90)), "discount %s", snap.Lines[0].Discount)
}

func TestRecompute_DiscountNeverDrivesLineNegative(t *testing.T) {
	agg := newTestAggregator()

	lineID := snowflake.ID(100)
	snap := &quotedomain.Snapshot{
		Quote: &quotedomain.Quote{ID: 1, Status: quotedomain.StatusDraft, TermMonths: 12},
		Lines: []*quotedomain.LineItem{
			{ID: lineID, QuoteID: 1, ProductID: 10, Quantity: 1},
		},
		Applied: []*discountdomain.AppliedDiscount{
			{
				ID: 200, QuoteID: 1, LineItemID: &lineID,
				Type: discountdomain.FixedAmount, Scope: discountdomain.ScopeLineItem,
				Value: decimal.NewFromInt(500), Reason: "goodwill",
			},
		},
		Customer: &customerdomain.Customer{ID: 2, Country: "US"},
		Products: map[snowflake.ID]*catalogdomain.Product{
			10: {ID: 10, IsTaxable: false},
		},
		PriceBook: map[snowflake.ID]*catalogdomain.PriceBookEntry{
			10: {ID: 20, ProductID: 10, ListPrice: decimal.NewFromInt(100)},
		},
	}

	_, err := agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.NoError(t, err)
	assert.True(t, snap.Lines[0].NetPrice.IsZero())
	assert.False(t, snap.Quote.Total.IsNegative())
}

func TestRecompute_ExemptCustomerPaysNoTax(t *testing.T) {
	agg := newTestAggregator()
	snap := mixedSnapshot()
	snap.Customer.IsTaxExempt = true

	_, err := agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.NoError(t, err)
	assert.True(t, snap.Quote.TaxAmount.IsZero())
	assert.Empty(t, snap.Quote.TaxBreakdown)
	assert.True(t, snap.Quote.Total.Equal(decimal.NewFromInt(1300)))
}

func TestRecompute_ApprovalGate(t *testing.T) {
	agg := newTestAggregator()
	snap := mixedSnapshot()
	snap.Rules = []ruledomain.Rule{
		{
			ID: 50, Name: "large deal approval", Type: ruledomain.Pricing,
			Trigger: ruledomain.OnQuoteSave, IsActive: true,
			Condition: datatypes.JSON(`{"field":"quote.total","op":"gt","value":1000}`),
			Action:    datatypes.JSON(`{"type":"REQUIRE_APPROVAL","message":"needs manager sign-off"}`),
		},
	}

	result, err := agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.NoError(t, err)
	assert.True(t, snap.Quote.RequiresApproval)
	assert.Equal(t, []string{"needs manager sign-off"}, []string(snap.Quote.ApprovalReasons))
	assert.True(t, result.Evaluation.RequiresApproval)

	// The same rule on a different trigger does not fire.
	snap.Rules[0].Trigger = ruledomain.OnFinalize
	_, err = agg.Recompute(snap, ruledomain.OnQuoteSave, time.Now())
	assert.NoError(t, err)
	assert.False(t, snap.Quote.RequiresApproval)
}
