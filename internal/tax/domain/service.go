package domain

import (
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
)

// Service computes locale taxes over an already-loaded rate table. It
// performs no I/O and no jurisdiction lookups.
type Service interface {
	CheckExemption(customer *customerdomain.Customer, now time.Time) ExemptionStatus
	ResolveRates(customer *customerdomain.Customer, rates []catalogdomain.TaxRate, asOf time.Time) []catalogdomain.TaxRate
	Calculate(taxableSubtotal decimal.Decimal, rates []catalogdomain.TaxRate, exempt bool) Result
}
