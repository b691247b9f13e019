package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type DiscountType string

var (
	Percentage  DiscountType = "PERCENTAGE"
	FixedAmount DiscountType = "FIXED_AMOUNT"
)

type DiscountScope string

var (
	ScopeLineItem        DiscountScope = "LINE_ITEM"
	ScopeQuote           DiscountScope = "QUOTE"
	ScopeProductCategory DiscountScope = "PRODUCT_CATEGORY"
)

// Discount is a catalog discount definition. The engine never mutates
// these rows; applying one materializes an AppliedDiscount instead.
type Discount struct {
	ID            snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID         snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;index"`
	Code          string            `json:"code" gorm:"type:text;not null"`
	Name          string            `json:"name" gorm:"type:text;not null"`
	Type          DiscountType      `json:"type" gorm:"type:text;not null"`
	Scope         DiscountScope     `json:"scope" gorm:"type:text;not null"`
	Value         decimal.Decimal   `json:"value" gorm:"type:numeric(14,2);not null"`
	MinQuantity   *int64            `json:"min_quantity,omitempty" gorm:""`
	MinOrderValue *decimal.Decimal  `json:"min_order_value,omitempty" gorm:"type:numeric(14,2)"`
	ValidFrom     *time.Time        `json:"valid_from,omitempty" gorm:""`
	ValidTo       *time.Time        `json:"valid_to,omitempty" gorm:""`
	Stackable     bool              `json:"stackable" gorm:"not null;default:false"`
	Priority      int32             `json:"priority" gorm:"not null;default:0"`
	IsActive      bool              `json:"is_active" gorm:"not null;default:true"`
	Tiers         []DiscountTier    `json:"tiers,omitempty" gorm:"foreignKey:DiscountID"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Discount) TableName() string { return "discounts" }

// ValidAt reports whether the discount may be applied at the given
// instant. Nil bounds are open-ended.
func (d *Discount) ValidAt(at time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.ValidFrom != nil && at.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && at.After(*d.ValidTo) {
		return false
	}
	return true
}

// ResolveTier returns the first tier whose quantity range covers qty,
// scanning in ascending min_quantity order, or nil when none match.
func (d *Discount) ResolveTier(qty int64) *DiscountTier {
	for i := range d.Tiers {
		t := &d.Tiers[i]
		if qty < t.MinQuantity {
			continue
		}
		if t.MaxQuantity == nil || qty <= *t.MaxQuantity {
			return t
		}
	}
	return nil
}

type DiscountTier struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	DiscountID  snowflake.ID    `json:"discount_id" gorm:"column:discount_id;not null;index"`
	TierNumber  int32           `json:"tier_number" gorm:"not null"`
	MinQuantity int64           `json:"min_quantity" gorm:"not null"`
	MaxQuantity *int64          `json:"max_quantity,omitempty" gorm:""`
	Value       decimal.Decimal `json:"value" gorm:"type:numeric(14,2);not null"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DiscountTier) TableName() string { return "discount_tiers" }

// AppliedDiscount is the materialized record of a discount attached to a
// quote or one of its line items. A nil DiscountID marks a manual
// discount; a nil LineItemID marks a quote-level one.
type AppliedDiscount struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	QuoteID          snowflake.ID    `json:"quote_id" gorm:"column:quote_id;not null;index"`
	LineItemID       *snowflake.ID   `json:"line_item_id,omitempty" gorm:"column:line_item_id;index"`
	DiscountID       *snowflake.ID   `json:"discount_id,omitempty" gorm:"column:discount_id"`
	Type             DiscountType    `json:"type" gorm:"type:text;not null"`
	Scope            DiscountScope   `json:"scope" gorm:"type:text;not null"`
	Value            decimal.Decimal `json:"value" gorm:"type:numeric(14,2);not null"`
	CalculatedAmount decimal.Decimal `json:"calculated_amount" gorm:"type:numeric(14,2);not null"`
	Reason           string          `json:"reason" gorm:"type:text"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AppliedDiscount) TableName() string { return "applied_discounts" }

// Amount recomputes the discount amount from scratch against the given
// base. Never adjust incrementally; recomputation from the formula is
// what keeps repeated edits drift-free.
func (a *AppliedDiscount) Amount(base decimal.Decimal) decimal.Decimal {
	switch a.Type {
	case Percentage:
		return base.Mul(a.Value).Div(decimal.NewFromInt(100)).Round(2)
	case FixedAmount:
		return a.Value
	default:
		return decimal.Zero
	}
}
