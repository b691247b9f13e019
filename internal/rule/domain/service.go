package domain

// Service evaluates a rule set against a context snapshot. Pure: no I/O,
// no side effects, rules with broken JSON fail in isolation.
type Service interface {
	Evaluate(rules []Rule, trigger RuleTrigger, context map[string]any, typeFilter *RuleType) EvaluationResult
}
