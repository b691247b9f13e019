package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	ruledomain "github.com/smallbiznis/quotient/internal/rule/domain"
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

func New(p Params) ruledomain.Service {
	return &Service{
		log: p.Log.Named("rule.service"),
	}
}

// Evaluate filters the rule set by activity, trigger and optional type,
// orders ascending by priority and evaluates every applicable rule
// independently. A rule with malformed JSON is recorded as a per-rule
// error; the rest of the set still runs.
func (s *Service) Evaluate(
	rules []ruledomain.Rule,
	trigger ruledomain.RuleTrigger,
	context map[string]any,
	typeFilter *ruledomain.RuleType,
) ruledomain.EvaluationResult {
	result := ruledomain.EvaluationResult{
		Success:        true,
		Errors:         []string{},
		Warnings:       []string{},
		AppliedActions: []ruledomain.Action{},
		RuleResults:    []ruledomain.RuleResult{},
	}

	applicable := make([]ruledomain.Rule, 0, len(rules))
	for _, r := range rules {
		if !r.IsActive || r.Trigger != trigger {
			continue
		}
		if typeFilter != nil && r.Type != *typeFilter {
			continue
		}
		applicable = append(applicable, r)
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority < applicable[j].Priority
	})

	for _, r := range applicable {
		ruleResult := ruledomain.RuleResult{RuleID: r.ID, Name: r.Name}

		cond, err := r.ParseCondition()
		if err != nil {
			ruleResult.Error = err.Error()
			result.RuleResults = append(result.RuleResults, ruleResult)
			continue
		}

		action, err := r.ParseAction()
		if err != nil {
			ruleResult.Error = err.Error()
			result.RuleResults = append(result.RuleResults, ruleResult)
			continue
		}

		if evaluateCondition(cond, context) {
			ruleResult.Matched = true
			s.applyAction(&result, r, action)
		}

		result.RuleResults = append(result.RuleResults, ruleResult)
	}

	return result
}

func (s *Service) applyAction(result *ruledomain.EvaluationResult, r ruledomain.Rule, action *ruledomain.Action) {
	result.AppliedActions = append(result.AppliedActions, *action)

	message := r.Name
	if action.Message != nil && *action.Message != "" {
		message = *action.Message
	}

	switch action.Type {
	case ruledomain.ExcludeOption, ruledomain.ExcludeProduct:
		result.Errors = append(result.Errors, message)
		result.Success = false
	case ruledomain.ShowWarning, ruledomain.Notify, ruledomain.Suggest:
		result.Warnings = append(result.Warnings, message)
	case ruledomain.RequireApproval:
		result.RequiresApproval = true
		result.ApprovalReasons = append(result.ApprovalReasons, message)
	default:
		// REQUIRE*, APPLY_DISCOUNT, APPLY_MARKUP, SET_PRICE are surfaced
		// through AppliedActions; enforcement belongs to the caller.
	}
}

func evaluateCondition(cond *ruledomain.Condition, context map[string]any) bool {
	if cond == nil {
		return false
	}
	if cond.Compound != nil {
		return evaluateCompound(cond.Compound, context)
	}
	if cond.Leaf != nil {
		return evaluateLeaf(cond.Leaf, context)
	}
	return false
}

func evaluateCompound(c *ruledomain.CompoundCondition, context map[string]any) bool {
	switch c.Operator {
	case ruledomain.OpAnd:
		for i := range c.Conditions {
			if !evaluateCondition(&c.Conditions[i], context) {
				return false
			}
		}
		return true
	case ruledomain.OpOr:
		for i := range c.Conditions {
			if evaluateCondition(&c.Conditions[i], context) {
				return true
			}
		}
		return false
	case ruledomain.OpNot:
		// not negates its first condition only.
		return !evaluateCondition(&c.Conditions[0], context)
	default:
		return false
	}
}

func evaluateLeaf(leaf *ruledomain.LeafCondition, context map[string]any) bool {
	resolved, ok := lookupPath(context, leaf.Field)
	if !ok {
		// A missing path is an unmatched condition, not an error.
		return false
	}

	switch leaf.Op {
	case ruledomain.OpEq:
		return valuesEqual(resolved, leaf.Value)
	case ruledomain.OpNeq:
		return !valuesEqual(resolved, leaf.Value)
	case ruledomain.OpGt, ruledomain.OpLt, ruledomain.OpGte, ruledomain.OpLte:
		return compareNumeric(leaf.Op, resolved, leaf.Value)
	case ruledomain.OpContains:
		return containsValue(resolved, leaf.Value)
	case ruledomain.OpIn:
		return inValue(resolved, leaf.Value)
	default:
		return false
	}
}

// lookupPath walks a dot-separated path into the context. Any missing or
// non-map intermediate resolves to "not found".
func lookupPath(context map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = context
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareNumeric fails closed: non-numeric operands never match.
func compareNumeric(op ruledomain.Op, a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case ruledomain.OpGt:
		return af > bf
	case ruledomain.OpLt:
		return af < bf
	case ruledomain.OpGte:
		return af >= bf
	case ruledomain.OpLte:
		return af <= bf
	default:
		return false
	}
}

func containsValue(resolved, value any) bool {
	switch rv := resolved.(type) {
	case string:
		s, ok := value.(string)
		return ok && strings.Contains(rv, s)
	case []any:
		for _, item := range rv {
			if valuesEqual(item, value) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range rv {
			if valuesEqual(item, value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func inValue(resolved, value any) bool {
	switch vs := value.(type) {
	case []any:
		for _, item := range vs {
			if valuesEqual(resolved, item) {
				return true
			}
		}
	case []string:
		for _, item := range vs {
			if valuesEqual(resolved, item) {
				return true
			}
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case decimal.Decimal:
		return n.InexactFloat64(), true
	default:
		return 0, false
	}
}
