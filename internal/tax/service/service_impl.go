package service

import (
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	taxdomain "github.com/smallbiznis/quotient/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func New(p Params) taxdomain.Service {
	return &Service{
		log: p.Log.Named("tax.service"),
	}
}

func (s *Service) CheckExemption(customer *customerdomain.Customer, now time.Time) taxdomain.ExemptionStatus {
	if customer == nil || !customer.IsTaxExempt {
		return taxdomain.ExemptionStatus{}
	}

	if customer.TaxExemptExpiry != nil && customer.TaxExemptExpiry.Before(now) {
		return taxdomain.ExemptionStatus{
			IsTaxExempt:      false,
			ExemptionExpired: true,
			ExemptionReason:  "exemption expired",
		}
	}

	return taxdomain.ExemptionStatus{
		IsTaxExempt:     true,
		ExemptionReason: "customer tax exempt",
	}
}

// ResolveRates matches the customer's locale against the rate table.
// Country-wide rows (nil state) and state rows both match and stack;
// state-level rows are ordered first for presentation only.
func (s *Service) ResolveRates(
	customer *customerdomain.Customer,
	rates []catalogdomain.TaxRate,
	asOf time.Time,
) []catalogdomain.TaxRate {
	if customer == nil {
		return nil
	}

	var stateRates, countryRates []catalogdomain.TaxRate
	for _, rate := range rates {
		if rate.Country != customer.Country {
			continue
		}
		if !rate.ValidAt(asOf) {
			continue
		}
		if rate.State == nil {
			countryRates = append(countryRates, rate)
			continue
		}
		if customer.State != nil && *rate.State == *customer.State {
			stateRates = append(stateRates, rate)
		}
	}

	return append(stateRates, countryRates...)
}

// Calculate applies each rate independently to the taxable subtotal and
// rounds per rate, so the breakdown lines always sum to the total.
func (s *Service) Calculate(
	taxableSubtotal decimal.Decimal,
	rates []catalogdomain.TaxRate,
	exempt bool,
) taxdomain.Result {
	result := taxdomain.Result{
		TaxAmount: decimal.Zero,
		Breakdown: []taxdomain.BreakdownItem{},
	}

	if exempt || len(rates) == 0 || taxableSubtotal.LessThanOrEqual(decimal.Zero) {
		return result
	}

	total := decimal.Zero
	for _, rate := range rates {
		amount := taxableSubtotal.Mul(rate.Rate).Round(2)
		result.Breakdown = append(result.Breakdown, taxdomain.BreakdownItem{
			Name:   rate.Name,
			Rate:   rate.Rate,
			Amount: amount,
		})
		total = total.Add(amount)
	}

	result.TaxAmount = total.Round(2)
	return result
}
