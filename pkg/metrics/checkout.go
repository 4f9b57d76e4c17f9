package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomeCreated   = "created"
	OutcomeRejected  = "rejected"
	OutcomeAmbiguous = "ambiguous"
	OutcomeFailed    = "failed"
)

// CheckoutMetrics records provider outcomes for the checkout endpoint.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	crmSkips *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout orchestration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout outcomes per provider.",
	}, []string{"provider", "outcome"})
	crmSkips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_crm_failures_total",
		Help: "Swallowed CRM call failures per leg.",
	}, []string{"leg"})
	reg.MustRegister(duration, outcomes, crmSkips)
	return &CheckoutMetrics{
		duration: duration,
		outcomes: outcomes,
		crmSkips: crmSkips,
	}
}

// ObserveDuration records orchestration time for the named provider.
func (c *CheckoutMetrics) ObserveDuration(provider string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncOutcome counts a business-level outcome for the named provider.
func (c *CheckoutMetrics) IncOutcome(provider, outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncCRMFailure counts a swallowed CRM failure on the named leg.
func (c *CheckoutMetrics) IncCRMFailure(leg string) {
	if c == nil || c.crmSkips == nil {
		return
	}
	c.crmSkips.WithLabelValues(normalizeLabel(leg)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
