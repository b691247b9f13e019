package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/quotient/internal/customer/domain"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
	taxdomain "github.com/smallbiznis/quotient/internal/tax/domain"
	"gorm.io/datatypes"
)

type Quote struct {
	ID               snowflake.ID                                 `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID                                 `json:"organization_id" gorm:"column:org_id;not null;index"`
	CustomerID       snowflake.ID                                 `json:"customer_id" gorm:"column:customer_id;not null;index"`
	PriceBookID      snowflake.ID                                 `json:"price_book_id" gorm:"column:price_book_id;not null"`
	ContractID       *snowflake.ID                                `json:"contract_id,omitempty" gorm:"column:contract_id"`
	Status           QuoteStatus                                  `json:"status" gorm:"type:text;not null;default:'DRAFT'"`
	TermMonths       int32                                        `json:"term_months" gorm:"not null;default:12"`
	Subtotal         decimal.Decimal                              `json:"subtotal" gorm:"type:numeric(14,2);not null;default:0"`
	DiscountTotal    decimal.Decimal                              `json:"discount_total" gorm:"type:numeric(14,2);not null;default:0"`
	TaxAmount        decimal.Decimal                              `json:"tax_amount" gorm:"type:numeric(14,2);not null;default:0"`
	TaxBreakdown     datatypes.JSONSlice[taxdomain.BreakdownItem] `json:"tax_breakdown" gorm:"type:jsonb"`
	Total            decimal.Decimal                              `json:"total" gorm:"type:numeric(14,2);not null;default:0"`
	RequiresApproval bool                                         `json:"requires_approval" gorm:"not null;default:false"`
	ApprovalReasons  datatypes.JSONSlice[string]                  `json:"approval_reasons,omitempty" gorm:"type:jsonb"`
	MRR              decimal.Decimal                              `json:"mrr" gorm:"column:mrr;type:numeric(14,2);not null;default:0"`
	ARR              decimal.Decimal                              `json:"arr" gorm:"column:arr;type:numeric(14,2);not null;default:0"`
	TCV              decimal.Decimal                              `json:"tcv" gorm:"column:tcv;type:numeric(14,2);not null;default:0"`
	CreatedAt        time.Time                                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time                                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Quote) TableName() string { return "quotes" }

// LineItem is one priced row of a quote. Bundle parents carry a zero net
// price; their children hold the priced components.
type LineItem struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	OrgID        snowflake.ID    `json:"organization_id" gorm:"column:org_id;not null;index"`
	QuoteID      snowflake.ID    `json:"quote_id" gorm:"column:quote_id;not null;index"`
	ProductID    snowflake.ID    `json:"product_id" gorm:"column:product_id;not null"`
	ParentLineID *snowflake.ID   `json:"parent_line_id,omitempty" gorm:"column:parent_line_id"`
	Quantity     int64           `json:"quantity" gorm:"not null;default:1"`
	ListPrice    decimal.Decimal `json:"list_price" gorm:"type:numeric(14,2);not null;default:0"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:numeric(14,2);not null;default:0"`
	Discount     decimal.Decimal `json:"discount" gorm:"type:numeric(14,2);not null;default:0"`
	NetPrice     decimal.Decimal `json:"net_price" gorm:"type:numeric(14,2);not null;default:0"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (LineItem) TableName() string { return "quote_line_items" }

// Snapshot is the fully-loaded in-memory state the calculation core runs
// over. The persistence layer materializes it before invocation; the core
// never reaches back to storage.
type Snapshot struct {
	Quote    *Quote
	Lines    []*LineItem
	Applied  []*discountdomain.AppliedDiscount
	Customer *customerdomain.Customer
	Contract *catalogdomain.Contract

	// Products and PriceBook are keyed by product ID.
	Products  map[snowflake.ID]*catalogdomain.Product
	PriceBook map[snowflake.ID]*catalogdomain.PriceBookEntry

	TaxRates  []catalogdomain.TaxRate
	Rules     []ruledomain.Rule
	Discounts map[snowflake.ID]*discountdomain.Discount
}

// RecomputeResult carries the rule evaluation that accompanied a
// recompute pass; the totals themselves are written onto the snapshot.
type RecomputeResult struct {
	Evaluation ruledomain.EvaluationResult
}
