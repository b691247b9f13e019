package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ManualDiscount is a one-off discount supplied directly on a quote,
// outside the catalog. It must carry a reason for the audit trail.
type ManualDiscount struct {
	Type   DiscountType    `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Reason string          `json:"reason"`
}

// ApplyRequest carries everything needed to validate and materialize a
// discount application. Exactly one of Discount or Manual is set.
type ApplyRequest struct {
	OrgID   snowflake.ID
	QuoteID snowflake.ID

	// QuoteIsDraft gates all mutation; Subtotal is the current quote
	// subtotal used for min-order checks and quote-level bases.
	QuoteIsDraft bool
	Subtotal     decimal.Decimal

	// LineItemID is nil for a quote-level application. LineBase and
	// LineQuantity describe the targeted line when set.
	LineItemID   *snowflake.ID
	LineBase     decimal.Decimal
	LineQuantity int64

	Discount *Discount
	Manual   *ManualDiscount

	Existing []*AppliedDiscount
	Now      time.Time
}

// Service validates discount applications and recomputes applied
// amounts. Pure: the caller owns loading and persistence.
type Service interface {
	// Apply validates the request and materializes an AppliedDiscount
	// with its amount computed against the current base. It rejects
	// before any state would change.
	Apply(req ApplyRequest) (*AppliedDiscount, error)

	// RecomputeLineAmounts recomputes from scratch every applied amount
	// targeting the given line against its base and returns the sum.
	RecomputeLineAmounts(applied []*AppliedDiscount, lineItemID snowflake.ID, base decimal.Decimal) decimal.Decimal

	// RecomputeQuoteAmounts does the same for quote-level applications
	// against the current subtotal.
	RecomputeQuoteAmounts(applied []*AppliedDiscount, subtotal decimal.Decimal) decimal.Decimal
}
