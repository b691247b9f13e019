package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	pricingdomain "github.com/smallbiznis/quotient/internal/pricing/domain"
	quotedomain "github.com/smallbiznis/quotient/internal/quote/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	taxdomain "github.com/smallbiznis/quotient/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type AggregatorParams struct {
	fx.In

	Log      *zap.Logger
	Pricing  pricingdomain.Service
	Discount discountdomain.Service
	Tax      taxdomain.Service
	Rules    ruledomain.Service
}

// Aggregator orchestrates the pricing, discount, tax and rule engines
// into one full recompute pass over a quote snapshot. Everything derived
// is recomputed from scratch; running the pass twice with no intervening
// mutation yields identical outputs.
type Aggregator struct {
	log      *zap.Logger
	pricing  pricingdomain.Service
	discount discountdomain.Service
	tax      taxdomain.Service
	rules    ruledomain.Service
}

func NewAggregator(p AggregatorParams) *Aggregator {
	return &Aggregator{
		log:      p.Log.Named("quote.aggregator"),
		pricing:  p.Pricing,
		discount: p.Discount,
		tax:      p.Tax,
		rules:    p.Rules,
	}
}

// Recompute runs the full pass in its fixed order: line pricing, line
// discounts, subtotal, quote discounts, tax, total, rules, recurring
// metrics. The order is load-bearing; see the step comments.
func (a *Aggregator) Recompute(
	snap *quotedomain.Snapshot,
	trigger ruledomain.RuleTrigger,
	now time.Time,
) (*quotedomain.RecomputeResult, error) {
	quote := snap.Quote

	// 1. Price every line, then recompute its discounts against the new
	// base. Bundle parents stay at zero; their children carry the price.
	subtotal := decimal.Zero
	taxableNet := decimal.Zero
	for _, line := range snap.Lines {
		product, ok := snap.Products[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", quotedomain.ErrProductNotFound, line.ProductID)
		}

		base := decimal.Zero
		if product.IsBundle {
			line.ListPrice = decimal.Zero
			line.UnitPrice = decimal.Zero
		} else {
			entry, ok := snap.PriceBook[line.ProductID]
			if !ok {
				// A missing entry is a catalog gap, fatal for the line and
				// never retried.
				return nil, fmt.Errorf("%w: product %s", pricingdomain.ErrEntryNotFound, line.ProductID)
			}
			res, err := a.pricing.Resolve(entry, line.Quantity, snap.Contract, now)
			if err != nil {
				return nil, err
			}
			line.ListPrice = entry.ListPrice
			line.UnitPrice = res.UnitPrice.Round(2)
			base = res.TotalPrice
		}

		// Tiered catalog discounts re-resolve their value from the
		// current quantity before amounts recompute.
		for _, applied := range snap.Applied {
			if applied.LineItemID == nil || *applied.LineItemID != line.ID || applied.DiscountID == nil {
				continue
			}
			if d, ok := snap.Discounts[*applied.DiscountID]; ok && d != nil {
				if tier := d.ResolveTier(line.Quantity); tier != nil {
					applied.Value = tier.Value
				}
			}
		}

		line.Discount = a.discount.RecomputeLineAmounts(snap.Applied, line.ID, base)
		net := base.Sub(line.Discount)
		if net.IsNegative() {
			net = decimal.Zero
		}
		line.NetPrice = net.Round(2)

		// 2. Subtotal accumulates as we go; parents contribute zero.
		subtotal = subtotal.Add(line.NetPrice)
		if product.IsTaxable && !product.IsBundle {
			taxableNet = taxableNet.Add(line.NetPrice)
		}
	}
	quote.Subtotal = subtotal.Round(2)

	// 3. Quote-level discounts recompute against the fresh subtotal.
	// DiscountTotal is informational: it sums line and quote amounts.
	quoteDiscount := a.discount.RecomputeQuoteAmounts(snap.Applied, quote.Subtotal)
	discountTotal := quoteDiscount
	for _, line := range snap.Lines {
		discountTotal = discountTotal.Add(line.Discount)
	}
	quote.DiscountTotal = discountTotal.Round(2)

	// 4. Only the quote-scope portion reduces the subtotal further; line
	// discounts are already inside each line's net price.
	subtotalAfterQuoteDiscount := quote.Subtotal.Sub(quoteDiscount)

	// 5. The tax base is the taxable lines' net, less their proportional
	// share of the quote-level discount.
	taxableBase := taxableNet
	if quote.Subtotal.IsPositive() && quoteDiscount.IsPositive() {
		share := quoteDiscount.Mul(taxableNet).Div(quote.Subtotal)
		taxableBase = taxableNet.Sub(share)
	}
	exemption := a.tax.CheckExemption(snap.Customer, now)
	rates := a.tax.ResolveRates(snap.Customer, snap.TaxRates, now)
	taxResult := a.tax.Calculate(taxableBase, rates, exemption.IsTaxExempt)
	quote.TaxAmount = taxResult.TaxAmount
	quote.TaxBreakdown = datatypes.NewJSONSlice(taxResult.Breakdown)

	// 6. Grand total.
	if subtotalAfterQuoteDiscount.IsNegative() {
		subtotalAfterQuoteDiscount = decimal.Zero
	}
	quote.Total = subtotalAfterQuoteDiscount.Add(quote.TaxAmount).Round(2)

	// 7. Rule evaluation over the fresh totals decides the approval gate.
	evaluation := a.rules.Evaluate(snap.Rules, trigger, a.buildContext(snap), nil)
	quote.RequiresApproval = evaluation.RequiresApproval
	quote.ApprovalReasons = datatypes.NewJSONSlice(evaluation.ApprovalReasons)

	// 8. Recurring-revenue metrics from line billing frequencies.
	a.recomputeRecurring(snap)

	return &quotedomain.RecomputeResult{Evaluation: evaluation}, nil
}

func (a *Aggregator) recomputeRecurring(snap *quotedomain.Snapshot) {
	quote := snap.Quote

	mrr := decimal.Zero
	oneTime := decimal.Zero
	for _, line := range snap.Lines {
		product, ok := snap.Products[line.ProductID]
		if !ok || product.IsBundle {
			continue
		}
		switch product.BillingFrequency {
		case "MONTHLY":
			mrr = mrr.Add(line.NetPrice)
		case "QUARTERLY":
			mrr = mrr.Add(line.NetPrice.Div(decimal.NewFromInt(3)))
		case "ANNUAL":
			mrr = mrr.Add(line.NetPrice.Div(decimal.NewFromInt(12)))
		default:
			oneTime = oneTime.Add(line.NetPrice)
		}
	}

	term := quote.TermMonths
	if term <= 0 {
		term = 12
	}

	quote.MRR = mrr.Round(2)
	quote.ARR = mrr.Mul(decimal.NewFromInt(12)).Round(2)
	quote.TCV = mrr.Mul(decimal.NewFromInt32(term)).Add(oneTime).Round(2)
}

// buildContext snapshots the quote for rule evaluation. Numeric values
// are plain floats so the comparators see both sides as numbers.
func (a *Aggregator) buildContext(snap *quotedomain.Snapshot) map[string]any {
	quote := snap.Quote

	lines := make([]any, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		lines = append(lines, map[string]any{
			"productId": line.ProductID.String(),
			"quantity":  float64(line.Quantity),
			"netPrice":  line.NetPrice.InexactFloat64(),
		})
	}

	discountPercent := 0.0
	if quote.Subtotal.IsPositive() {
		discountPercent = quote.DiscountTotal.Div(quote.Subtotal).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	context := map[string]any{
		"quote": map[string]any{
			"id":              quote.ID.String(),
			"status":          string(quote.Status),
			"subtotal":        quote.Subtotal.InexactFloat64(),
			"discountTotal":   quote.DiscountTotal.InexactFloat64(),
			"taxAmount":       quote.TaxAmount.InexactFloat64(),
			"total":           quote.Total.InexactFloat64(),
			"discountPercent": discountPercent,
			"lineCount":       float64(len(snap.Lines)),
			"termMonths":      float64(quote.TermMonths),
		},
		"lineItems": lines,
	}

	if snap.Customer != nil {
		customer := map[string]any{
			"id":          snap.Customer.ID.String(),
			"country":     snap.Customer.Country,
			"isTaxExempt": snap.Customer.IsTaxExempt,
		}
		if snap.Customer.State != nil {
			customer["state"] = *snap.Customer.State
		}
		context["customer"] = customer
	}

	return context
}
