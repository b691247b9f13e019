package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level instruments for the calculation core.
type Metrics struct {
	QuoteRecomputes   prometheus.Counter
	RecomputeDuration prometheus.Histogram
	RuleEvaluations   prometheus.Counter
	DiscountsApplied  prometheus.Counter
	StatusTransitions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuoteRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotient_quote_recomputes_total",
			Help: "Full quote recompute passes executed.",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quotient_quote_recompute_duration_seconds",
			Help:    "Duration of a full quote recompute pass.",
			Buckets: prometheus.DefBuckets,
		}),
		RuleEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotient_rule_evaluations_total",
			Help: "Rule set evaluations executed.",
		}),
		DiscountsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quotient_discounts_applied_total",
			Help: "Discount applications accepted.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotient_quote_status_transitions_total",
			Help: "Quote status transitions by target state.",
		}, []string{"to"}),
	}

	reg.MustRegister(
		m.QuoteRecomputes,
		m.RecomputeDuration,
		m.RuleEvaluations,
		m.DiscountsApplied,
		m.StatusTransitions,
	)
	return m
}

func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

var Module = fx.Module("observability.metrics",
	fx.Provide(
		NewRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		New,
	),
)
