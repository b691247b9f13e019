package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BillingFrequency string

var (
	OneTime   BillingFrequency = "ONE_TIME"
	Monthly   BillingFrequency = "MONTHLY"
	Quarterly BillingFrequency = "QUARTERLY"
	Annual    BillingFrequency = "ANNUAL"
)

type TierType string

var (
	UnitPrice TierType = "UNIT_PRICE"
	FlatPrice TierType = "FLAT_PRICE"
)

type ContractStatus string

var (
	ContractDraft   ContractStatus = "DRAFT"
	ContractActive  ContractStatus = "ACTIVE"
	ContractExpired ContractStatus = "EXPIRED"
)

type Product struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;index"`
	Code             string            `json:"code" gorm:"type:text;not null"`
	Name             string            `json:"name" gorm:"type:text;not null"`
	CategoryID       *snowflake.ID     `json:"category_id,omitempty" gorm:"index"`
	IsTaxable        bool              `json:"is_taxable" gorm:"not null;default:true"`
	IsBundle         bool              `json:"is_bundle" gorm:"not null;default:false"`
	BillingFrequency BillingFrequency  `json:"billing_frequency" gorm:"type:text;not null;default:'ONE_TIME'"`
	Active           bool              `json:"active" gorm:"not null;default:true"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt        time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

type PriceBookEntry struct {
	ID          snowflake.ID     `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID     `json:"organization_id" gorm:"column:org_id;not null;index"`
	PriceBookID snowflake.ID     `json:"price_book_id" gorm:"column:price_book_id;not null;index"`
	ProductID   snowflake.ID     `json:"product_id" gorm:"column:product_id;not null;index"`
	ListPrice   decimal.Decimal  `json:"list_price" gorm:"type:numeric(14,2);not null"`
	Cost        *decimal.Decimal `json:"cost,omitempty" gorm:"type:numeric(14,2)"`
	Currency    string           `json:"currency" gorm:"type:text;not null;default:'USD'"`
	Tiers       []PriceTier      `json:"tiers,omitempty" gorm:"foreignKey:PriceBookEntryID"`
	CreatedAt   time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceBookEntry) TableName() string { return "price_book_entries" }

// PriceTier prices a quantity range, either per unit or as a flat total
// for the whole range. Tiers for one entry are stored non-overlapping and
// ascending by min_quantity; the resolver trusts that ordering.
type PriceTier struct {
	ID               snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	PriceBookEntryID snowflake.ID    `json:"price_book_entry_id" gorm:"column:price_book_entry_id;not null;index"`
	MinQuantity      int64           `json:"min_quantity" gorm:"not null"`
	MaxQuantity      *int64          `json:"max_quantity,omitempty" gorm:""`
	TierPrice        decimal.Decimal `json:"tier_price" gorm:"type:numeric(14,2);not null"`
	TierType         TierType        `json:"tier_type" gorm:"type:text;not null;default:'UNIT_PRICE'"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceTier) TableName() string { return "price_tiers" }

// Matches reports whether the tier covers the quantity. Both bounds are
// inclusive; a nil max means the tier is open-ended.
func (t *PriceTier) Matches(quantity int64) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// ValidateTiers checks the invariants the resolver trusts: ascending,
// non-overlapping ranges with sane bounds. Runs on write, not on resolve.
func (e *PriceBookEntry) ValidateTiers() error {
	var prev *PriceTier
	for i := range e.Tiers {
		t := &e.Tiers[i]
		if t.MinQuantity < 1 {
			return ErrInvalidTierRange
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			return ErrInvalidTierRange
		}
		if prev != nil {
			if prev.MaxQuantity == nil || t.MinQuantity <= *prev.MaxQuantity {
				return ErrInvalidTierRange
			}
		}
		prev = t
	}
	return nil
}

type Contract struct {
	ID              snowflake.ID         `json:"id" gorm:"primaryKey"`
	OrgID           snowflake.ID         `json:"organization_id" gorm:"column:org_id;not null;index"`
	CustomerID      snowflake.ID         `json:"customer_id" gorm:"column:customer_id;not null;index"`
	Status          ContractStatus       `json:"status" gorm:"type:text;not null;default:'DRAFT'"`
	StartDate       time.Time            `json:"start_date" gorm:"not null"`
	EndDate         time.Time            `json:"end_date" gorm:"not null"`
	DiscountPercent *decimal.Decimal     `json:"discount_percent,omitempty" gorm:"type:numeric(6,2)"`
	PriceEntries    []ContractPriceEntry `json:"price_entries,omitempty" gorm:"foreignKey:ContractID"`
	CreatedAt       time.Time            `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time            `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Contract) TableName() string { return "contracts" }

// IsEffectiveAt reports whether the contract's negotiated pricing applies
// at the given instant. Only ACTIVE contracts inside their date window do.
func (c *Contract) IsEffectiveAt(at time.Time) bool {
	if c == nil || c.Status != ContractActive {
		return false
	}
	return !at.Before(c.StartDate) && !at.After(c.EndDate)
}

// FixedPriceFor returns the negotiated fixed price for a product, if one exists.
func (c *Contract) FixedPriceFor(productID snowflake.ID) *decimal.Decimal {
	for i := range c.PriceEntries {
		if c.PriceEntries[i].ProductID == productID {
			return &c.PriceEntries[i].FixedPrice
		}
	}
	return nil
}

type ContractPriceEntry struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	ContractID snowflake.ID    `json:"contract_id" gorm:"column:contract_id;not null;index"`
	ProductID  snowflake.ID    `json:"product_id" gorm:"column:product_id;not null;index"`
	FixedPrice decimal.Decimal `json:"fixed_price" gorm:"type:numeric(14,2);not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ContractPriceEntry) TableName() string { return "contract_price_entries" }

// TaxRate is a locale tax row. A nil state means the rate is country-wide;
// rates are not mutually exclusive, all applicable rows stack.
type TaxRate struct {
	ID         snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name       string          `json:"name" gorm:"type:text;not null"`
	Rate       decimal.Decimal `json:"rate" gorm:"type:numeric(8,6);not null"`
	Country    string          `json:"country" gorm:"type:text;not null;index"`
	State      *string         `json:"state,omitempty" gorm:"type:text"`
	CategoryID *snowflake.ID   `json:"category_id,omitempty" gorm:""`
	ValidFrom  *time.Time      `json:"valid_from,omitempty" gorm:""`
	ValidTo    *time.Time      `json:"valid_to,omitempty" gorm:""`
	Active     bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TaxRate) TableName() string { return "tax_rates" }

// ValidAt reports whether the rate is in force at the given instant.
// Nil bounds are open-ended.
func (r *TaxRate) ValidAt(at time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ValidFrom != nil && at.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && at.After(*r.ValidTo) {
		return false
	}
	return true
}
