// Package metrics provides observability for the credentialing workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for credentialing transitions and decisions.
type Metrics struct {
	// Recorded status transitions by from and to status
	Transitions *prometheus.CounterVec

	// Admin decisions by decision and result ("applied", "noop")
	Decisions *prometheus.CounterVec

	// Submissions by kind ("document", "npi") and result
	Submissions *prometheus.CounterVec

	// Sweeper passes and the profiles each pass touched
	SweepRuns      prometheus.Counter
	SweptProfiles  prometheus.Counter
	SweepFailures  prometheus.Counter
	ExpiryNotified *prometheus.CounterVec
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_credentialing_transitions_total",
			Help: "Recorded credentialing status transitions",
		}, []string{"from", "to"}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_credentialing_decisions_total",
			Help: "Admin decisions by decision and result",
		}, []string{"decision", "result"}),

		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_credentialing_submissions_total",
			Help: "Provider submissions by kind and result",
		}, []string{"kind", "result"}),

		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetting_credentialing_sweep_runs_total",
			Help: "Completed sweeper passes",
		}),

		SweptProfiles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetting_credentialing_swept_profiles_total",
			Help: "Profiles reconciled by the sweeper",
		}),

		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetting_credentialing_sweep_failures_total",
			Help: "Profiles the sweeper failed to reconcile",
		}),

		ExpiryNotified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vetting_credentialing_expiry_events_total",
			Help: "Document expiring/expired events emitted",
		}, []string{"event"}),
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) IncrementDecision(decision, result string) {
	if m != nil {
		m.Decisions.WithLabelValues(decision, result).Inc()
	}
}

func (m *Metrics) IncrementSubmission(kind, result string) {
	if m != nil {
		m.Submissions.WithLabelValues(kind, result).Inc()
	}
}

// ObserveSweep records one sweeper pass.
func (m *Metrics) ObserveSweep(profiles, failures int) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweptProfiles.Add(float64(profiles))
	m.SweepFailures.Add(float64(failures))
}

func (m *Metrics) IncrementExpiryEvent(event string) {
	if m != nil {
		m.ExpiryNotified.WithLabelValues(event).Inc()
	}
}
