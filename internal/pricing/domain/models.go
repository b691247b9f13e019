package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
)

type OverrideType string

var (
	OverrideFixed      OverrideType = "fixed"
	OverridePercentage OverrideType = "percentage"
)

// ContractOverride records how a negotiated contract replaced the
// tier/list result, so the original price stays auditable.
type ContractOverride struct {
	ContractID      snowflake.ID     `json:"contract_id"`
	PriceType       OverrideType     `json:"price_type"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	OriginalPrice   decimal.Decimal  `json:"original_price"`
}

// Resolution is the outcome of resolving a (product, quantity, price book)
// triple against tiers and an optional contract.
type Resolution struct {
	UnitPrice   decimal.Decimal          `json:"unit_price"`
	TotalPrice  decimal.Decimal          `json:"total_price"`
	ListPrice   decimal.Decimal          `json:"list_price"`
	TierApplied bool                     `json:"tier_applied"`
	Tier        *catalogdomain.PriceTier `json:"tier,omitempty"`
	Contract    *ContractOverride        `json:"contract,omitempty"`
	Margin      *decimal.Decimal         `json:"margin,omitempty"`
}

// ContractApplied reports whether contract pricing took precedence over
// the tier/list result.
func (r *Resolution) ContractApplied() bool { return r.Contract != nil }

var (
	ErrEntryNotFound   = errors.New("price_book_entry_not_found")
	ErrInvalidQuantity = errors.New("invalid_quantity")
)
