package domain

import (
	"github.com/shopspring/decimal"
)

// ExemptionStatus is the outcome of checking a customer's exemption flag.
// ExemptionExpired means the flag is set but has lapsed, so the customer
// is currently taxed in full.
type ExemptionStatus struct {
	IsTaxExempt      bool   `json:"is_tax_exempt"`
	ExemptionExpired bool   `json:"exemption_expired"`
	ExemptionReason  string `json:"exemption_reason,omitempty"`
}

type BreakdownItem struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

type Result struct {
	TaxAmount decimal.Decimal `json:"tax_amount"`
	Breakdown []BreakdownItem `json:"breakdown"`
}
