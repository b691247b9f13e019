package service

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	discountdomain "github.com/smallbiznis/quotient/internal/discount/domain"
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

func New(p Params) discountdomain.Service {
	return &Service{
		log: p.Log.Named("discount.service"),
	}
}

func (s *Service) Apply(req discountdomain.ApplyRequest) (*discountdomain.AppliedDiscount, error) {
	if !req.QuoteIsDraft {
		return nil, discountdomain.ErrQuoteNotDraft
	}

	if req.Discount != nil {
		return s.applyCatalog(req)
	}
	if req.Manual != nil {
		return s.applyManual(req)
	}
	return nil, discountdomain.ErrDiscountNotFound
}

func (s *Service) applyCatalog(req discountdomain.ApplyRequest) (*discountdomain.AppliedDiscount, error) {
	d := req.Discount

	if !d.IsActive {
		return nil, discountdomain.ErrDiscountInactive
	}
	if !d.ValidAt(req.Now) {
		return nil, discountdomain.ErrDiscountExpired
	}

	// Scope must match the target: line discounts need a line, quote and
	// category discounts must not name one.
	switch d.Scope {
	case discountdomain.ScopeLineItem:
		if req.LineItemID == nil {
			return nil, discountdomain.ErrScopeMismatch
		}
	case discountdomain.ScopeQuote, discountdomain.ScopeProductCategory:
		if req.LineItemID != nil {
			return nil, discountdomain.ErrScopeMismatch
		}
	default:
		return nil, discountdomain.ErrScopeMismatch
	}

	if d.MinQuantity != nil && req.LineItemID != nil && req.LineQuantity < *d.MinQuantity {
		return nil, discountdomain.ErrMinQuantity
	}
	if d.MinOrderValue != nil && req.Subtotal.LessThan(*d.MinOrderValue) {
		return nil, discountdomain.ErrMinOrderValue
	}
	if !d.Stackable {
		for _, existing := range req.Existing {
			if existing.DiscountID != nil && *existing.DiscountID == d.ID {
				return nil, discountdomain.ErrNotStackable
			}
		}
	}

	value := d.Value
	if tier := d.ResolveTier(req.LineQuantity); tier != nil {
		value = tier.Value
	}

	applied := &discountdomain.AppliedDiscount{
		OrgID:      req.OrgID,
		QuoteID:    req.QuoteID,
		LineItemID: req.LineItemID,
		DiscountID: &d.ID,
		Type:       d.Type,
		Scope:      d.Scope,
		Value:      value,
		Reason:     d.Name,
	}
	applied.CalculatedAmount = applied.Amount(s.baseFor(req))
	return applied, nil
}

func (s *Service) applyManual(req discountdomain.ApplyRequest) (*discountdomain.AppliedDiscount, error) {
	m := req.Manual

	if strings.TrimSpace(m.Reason) == "" {
		return nil, discountdomain.ErrMissingReason
	}
	switch m.Type {
	case discountdomain.Percentage, discountdomain.FixedAmount:
	default:
		return nil, discountdomain.ErrInvalidDiscountType
	}
	if m.Value.LessThanOrEqual(decimal.Zero) {
		return nil, discountdomain.ErrInvalidDiscountValue
	}

	scope := discountdomain.ScopeQuote
	if req.LineItemID != nil {
		scope = discountdomain.ScopeLineItem
	}

	applied := &discountdomain.AppliedDiscount{
		OrgID:      req.OrgID,
		QuoteID:    req.QuoteID,
		LineItemID: req.LineItemID,
		Type:       m.Type,
		Scope:      scope,
		Value:      m.Value,
		Reason:     m.Reason,
	}
	applied.CalculatedAmount = applied.Amount(s.baseFor(req))
	return applied, nil
}

func (s *Service) baseFor(req discountdomain.ApplyRequest) decimal.Decimal {
	if req.LineItemID != nil {
		return req.LineBase
	}
	return req.Subtotal
}

func (s *Service) RecomputeLineAmounts(
	applied []*discountdomain.AppliedDiscount,
	lineItemID snowflake.ID,
	base decimal.Decimal,
) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range applied {
		if a.LineItemID == nil || *a.LineItemID != lineItemID {
			continue
		}
		a.CalculatedAmount = a.Amount(base)
		sum = sum.Add(a.CalculatedAmount)
	}
	return sum
}

func (s *Service) RecomputeQuoteAmounts(
	applied []*discountdomain.AppliedDiscount,
	subtotal decimal.Decimal,
) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range applied {
		if a.LineItemID != nil {
			continue
		}
		a.CalculatedAmount = a.Amount(subtotal)
		sum = sum.Add(a.CalculatedAmount)
	}
	return sum
}
