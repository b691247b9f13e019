package domain

import "errors"

var (
	ErrQuoteNotDraft        = errors.New("quote_not_draft")
	ErrDiscountInactive     = errors.New("discount_inactive")
	ErrDiscountExpired      = errors.New("discount_expired")
	ErrScopeMismatch        = errors.New("discount_scope_mismatch")
	ErrMinOrderValue        = errors.New("min_order_value_not_met")
	ErrMinQuantity          = errors.New("min_quantity_not_met")
	ErrNotStackable         = errors.New("discount_not_stackable")
	ErrMissingReason        = errors.New("manual_discount_reason_required")
	ErrLineItemNotFound     = errors.New("line_item_not_found")
	ErrAppliedNotFound      = errors.New("applied_discount_not_found")
	ErrDiscountNotFound     = errors.New("discount_not_found")
	ErrInvalidDiscountType  = errors.New("invalid_discount_type")
	ErrInvalidDiscountValue = errors.New("invalid_discount_value")
)
