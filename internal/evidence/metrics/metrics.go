// Package metrics provides observability for NPI verification and exclusion
// screening.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the evidence sources.
type Metrics struct {
	// Outbound call latency by source ("nppes", "oig", "sam", ...)
	SourceLatency *prometheus.HistogramVec

	// Outcomes by check ("npi", "exclusion") and outcome
	Outcomes *prometheus.CounterVec

	// Verification cache lookups by result ("hit", "miss", "bypass")
	CacheLookups *prometheus.CounterVec

	// Circuit breaker transitions by source and direction
	BreakerTransitions *prometheus.CounterVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return &Metrics{
		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vetting_evidence_source_duration_seconds",
			Help:    "Duration of outbound evidence source calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),

		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_evidence_outcomes_total",
			Help: "Evidence check outcomes by check and outcome",
		}, []string{"check", "outcome"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_npi_cache_lookups_total",
			Help: "NPI verification cache lookups by result",
		}, []string{"result"}),

		BreakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_evidence_breaker_transitions_total",
			Help: "Circuit breaker state changes by source",
		}, []string{"source", "to"}),
	}
}

// ObserveSourceLatency records the duration of one outbound call.
func (m *Metrics) ObserveSourceLatency(source string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementOutcome records a check outcome.
func (m *Metrics) IncrementOutcome(check, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(check, outcome).Inc()
	}
}

// IncrementCacheLookup records a cache hit, miss or bypass.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// IncrementBreakerTransition records a breaker opening or closing.
func (m *Metrics) IncrementBreakerTransition(source, to string) {
	if m != nil {
		m.BreakerTransitions.WithLabelValues(source, to).Inc()
	}
}
