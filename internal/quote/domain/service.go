package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
	taxdomain "github.com/smallbiznis/quotient/internal/tax/domain"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	AddLineItem(ctx context.Context, quoteID string, req AddLineRequest) (*Response, error)
	UpdateLineQuantity(ctx context.Context, quoteID, lineID string, quantity int64) (*Response, error)
	RemoveLineItem(ctx context.Context, quoteID, lineID string) (*Response, error)
	ApplyDiscount(ctx context.Context, quoteID string, req ApplyDiscountRequest) (*Response, error)
	RemoveDiscount(ctx context.Context, quoteID, appliedID string) (*Response, error)
	Recompute(ctx context.Context, quoteID string) (*Response, error)
	Submit(ctx context.Context, quoteID string) (*Response, error)
	Transition(ctx context.Context, quoteID string, next QuoteStatus) (*Response, error)
}

type CreateRequest struct {
	CustomerID  string `json:"customer_id"`
	PriceBookID string `json:"price_book_id"`
	TermMonths  int32  `json:"term_months"`
}

type AddLineRequest struct {
	ProductID    string `json:"product_id"`
	ParentLineID string `json:"parent_line_id,omitempty"`
	Quantity     int64  `json:"quantity"`
}

type ApplyDiscountRequest struct {
	DiscountID string                         `json:"discount_id,omitempty"`
	LineItemID string                         `json:"line_item_id,omitempty"`
	Manual     *discountdomain.ManualDiscount `json:"manual,omitempty"`
}

type LineResponse struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	ParentLineID *string         `json:"parent_line_id,omitempty"`
	Quantity     int64           `json:"quantity"`
	ListPrice    decimal.Decimal `json:"list_price"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Discount     decimal.Decimal `json:"discount"`
	NetPrice     decimal.Decimal `json:"net_price"`
}

type AppliedDiscountResponse struct {
	ID               string          `json:"id"`
	LineItemID       *string         `json:"line_item_id,omitempty"`
	DiscountID       *string         `json:"discount_id,omitempty"`
	Type             string          `json:"type"`
	Scope            string          `json:"scope"`
	Value            decimal.Decimal `json:"value"`
	CalculatedAmount decimal.Decimal `json:"calculated_amount"`
	Reason           string          `json:"reason,omitempty"`
}

type Response struct {
	ID               string                    `json:"id"`
	CustomerID       string                    `json:"customer_id"`
	PriceBookID      string                    `json:"price_book_id"`
	Status           QuoteStatus               `json:"status"`
	TermMonths       int32                     `json:"term_months"`
	Subtotal         decimal.Decimal           `json:"subtotal"`
	DiscountTotal    decimal.Decimal           `json:"discount_total"`
	TaxAmount        decimal.Decimal           `json:"tax_amount"`
	TaxBreakdown     []taxdomain.BreakdownItem `json:"tax_breakdown"`
	Total            decimal.Decimal           `json:"total"`
	RequiresApproval bool                      `json:"requires_approval"`
	ApprovalReasons  []string                  `json:"approval_reasons,omitempty"`
	MRR              decimal.Decimal           `json:"mrr"`
	ARR              decimal.Decimal           `json:"arr"`
	TCV              decimal.Decimal           `json:"tcv"`
	Lines            []LineResponse            `json:"lines"`
	Discounts        []AppliedDiscountResponse `json:"discounts"`
	Warnings         []string                  `json:"warnings,omitempty"`
	Errors           []string                  `json:"errors,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}
