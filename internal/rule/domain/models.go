package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RuleType string

var (
	Configuration RuleType = "CONFIGURATION"
	Pricing       RuleType = "PRICING"
)

type RuleTrigger string

var (
	OnProductAdd     RuleTrigger = "ON_PRODUCT_ADD"
	OnQuantityChange RuleTrigger = "ON_QUANTITY_CHANGE"
	OnQuoteSave      RuleTrigger = "ON_QUOTE_SAVE"
	OnFinalize       RuleTrigger = "ON_FINALIZE"
)

// Rule stores its condition tree and action as raw JSON; both are parsed
// strictly at evaluation time so one malformed rule cannot poison the
// rest of the set.
type Rule struct {
	ID        snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrgID     snowflake.ID   `json:"organization_id" gorm:"column:org_id;not null;index"`
	Name      string         `json:"name" gorm:"type:text;not null"`
	Type      RuleType       `json:"type" gorm:"type:text;not null"`
	Trigger   RuleTrigger    `json:"trigger" gorm:"type:text;not null;index"`
	Priority  int32          `json:"priority" gorm:"not null;default:0"`
	Condition datatypes.JSON `json:"condition" gorm:"type:jsonb;not null"`
	Action    datatypes.JSON `json:"action" gorm:"type:jsonb;not null"`
	IsActive  bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Rule) TableName() string { return "rules" }

// RuleResult is the isolated outcome of evaluating one rule.
type RuleResult struct {
	RuleID  snowflake.ID `json:"rule_id"`
	Name    string       `json:"name"`
	Matched bool         `json:"matched"`
	Error   string       `json:"error,omitempty"`
}

// EvaluationResult aggregates every applicable rule's outcome.
// RequiresApproval is the sole signal that forces a quote into
// PENDING_APPROVAL on submit.
type EvaluationResult struct {
	Success          bool         `json:"success"`
	Errors           []string     `json:"errors"`
	Warnings         []string     `json:"warnings"`
	AppliedActions   []Action     `json:"applied_actions"`
	RequiresApproval bool         `json:"requires_approval"`
	ApprovalReasons  []string     `json:"approval_reasons,omitempty"`
	RuleResults      []RuleResult `json:"per_rule_results"`
}

var (
	ErrInvalidCondition = errors.New("invalid_condition")
	ErrInvalidAction    = errors.New("invalid_action")
)
