package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
	ErrQuoteNotDraft       = errors.New("quote_not_draft")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrLineNotFound        = errors.New("line_item_not_found")
	ErrProductNotFound     = errors.New("product_not_found")
	ErrCustomerNotFound    = errors.New("customer_not_found")
	ErrRuleBlocked         = errors.New("rule_blocked")
)
