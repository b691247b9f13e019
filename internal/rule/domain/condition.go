package domain

import (
	"encoding/json"
	"fmt"
)

type Op string

var (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpLt       Op = "lt"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpIn       Op = "in"
)

type LogicalOperator string

var (
	OpAnd LogicalOperator = "and"
	OpOr  LogicalOperator = "or"
	OpNot LogicalOperator = "not"
)

type LeafCondition struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

type CompoundCondition struct {
	Operator   LogicalOperator `json:"operator"`
	Conditions []Condition     `json:"conditions"`
}

// Condition is the tagged union over leaf and compound nodes. Exactly one
// arm is set after a successful parse.
type Condition struct {
	Leaf     *LeafCondition
	Compound *CompoundCondition
}

func (c Condition) MarshalJSON() ([]byte, error) {
	if c.Compound != nil {
		return json.Marshal(c.Compound)
	}
	return json.Marshal(c.Leaf)
}

// UnmarshalJSON discriminates on the "operator" vs "field" key and
// rejects anything it does not recognize, per the stable wire format.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var probe struct {
		Field    *string `json:"field"`
		Operator *string `json:"operator"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
	}

	switch {
	case probe.Operator != nil:
		var compound CompoundCondition
		if err := json.Unmarshal(data, &compound); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
		}
		switch compound.Operator {
		case OpAnd, OpOr, OpNot:
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, compound.Operator)
		}
		if len(compound.Conditions) == 0 {
			return fmt.Errorf("%w: operator %q has no conditions", ErrInvalidCondition, compound.Operator)
		}
		c.Compound = &compound
		c.Leaf = nil
		return nil

	case probe.Field != nil:
		var leaf LeafCondition
		if err := json.Unmarshal(data, &leaf); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
		}
		switch leaf.Op {
		case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpContains, OpIn:
		default:
			return fmt.Errorf("%w: unknown op %q", ErrInvalidCondition, leaf.Op)
		}
		if leaf.Field == "" {
			return fmt.Errorf("%w: empty field", ErrInvalidCondition)
		}
		c.Leaf = &leaf
		c.Compound = nil
		return nil

	default:
		return fmt.Errorf("%w: neither leaf nor compound", ErrInvalidCondition)
	}
}

// ParseCondition parses the rule's stored condition tree.
func (r *Rule) ParseCondition() (*Condition, error) {
	var cond Condition
	if err := json.Unmarshal(r.Condition, &cond); err != nil {
		return nil, err
	}
	return &cond, nil
}

type ActionType string

var (
	RequireOption   ActionType = "REQUIRE_OPTION"
	ExcludeOption   ActionType = "EXCLUDE_OPTION"
	RequireProduct  ActionType = "REQUIRE_PRODUCT"
	ExcludeProduct  ActionType = "EXCLUDE_PRODUCT"
	ShowWarning     ActionType = "SHOW_WARNING"
	ApplyDiscount   ActionType = "APPLY_DISCOUNT"
	ApplyMarkup     ActionType = "APPLY_MARKUP"
	SetPrice        ActionType = "SET_PRICE"
	RequireApproval ActionType = "REQUIRE_APPROVAL"
	Require         ActionType = "REQUIRE"
	Suggest         ActionType = "SUGGEST"
	Notify          ActionType = "NOTIFY"
)

var knownActionTypes = map[ActionType]struct{}{
	RequireOption: {}, ExcludeOption: {}, RequireProduct: {}, ExcludeProduct: {},
	ShowWarning: {}, ApplyDiscount: {}, ApplyMarkup: {}, SetPrice: {},
	RequireApproval: {}, Require: {}, Suggest: {}, Notify: {},
}

// Action field names follow the stable wire format, not the repo's usual
// snake_case convention.
type Action struct {
	Type         ActionType `json:"type"`
	TargetID     *string    `json:"targetId,omitempty"`
	DiscountID   *string    `json:"discountId,omitempty"`
	Value        *float64   `json:"value,omitempty"`
	Message      *string    `json:"message,omitempty"`
	Scope        *string    `json:"scope,omitempty"`
	Products     []string   `json:"products,omitempty"`
	ApproverRole *string    `json:"approverRole,omitempty"`
}

// ParseAction parses and validates the rule's stored action.
func (r *Rule) ParseAction() (*Action, error) {
	var action Action
	if err := json.Unmarshal(r.Action, &action); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if _, ok := knownActionTypes[action.Type]; !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, action.Type)
	}
	return &action, nil
}
