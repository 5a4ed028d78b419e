// Package observability holds the Prometheus metrics and OpenTelemetry
// tracer shared by the crew activation pipeline.
//
// All methods on *Metrics are safe to call on a nil receiver, so components
// can be constructed without metrics in tests.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// #region names

const (
	metricsNamespace = "alexai"
	crewSubsystem    = "crew"
	tracerName       = "github.com/familiarcat/alex-ai-universal-sub002/crew"
)

// Outcome labels for persona invocations.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
)

// #endregion

// #region tracer

// Tracer returns the package tracer. It resolves through the global
// provider on each call so tests and binaries can install their own.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// #endregion

// #region metrics

// Metrics groups the crew pipeline's Prometheus collectors.
type Metrics struct {
	// PersonaInvocations counts finished persona tasks.
	// Labels: persona, outcome (success, failure, fallback)
	PersonaInvocations *prometheus.CounterVec

	// Retries counts retry attempts after a failed backend call.
	// Labels: persona
	Retries *prometheus.CounterVec

	// CycleDuration measures whole activation cycles.
	// Labels: mode (parallel, sequential)
	CycleDuration *prometheus.HistogramVec

	// Hallucinations counts flagged perspectives.
	// Labels: severity
	Hallucinations *prometheus.CounterVec

	// ConsensusAgreement observes the agreement score of each consensus.
	ConsensusAgreement prometheus.Histogram

	// CycleFailures counts cycles that failed as a whole.
	CycleFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PersonaInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "persona_invocations_total",
				Help:      "Persona tasks by outcome",
			},
			[]string{"persona", "outcome"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "retries_total",
				Help:      "Backend retry attempts by persona",
			},
			[]string{"persona"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "cycle_duration_seconds",
				Help:      "Wall-clock duration of activation cycles",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
		Hallucinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "hallucinations_total",
				Help:      "Perspectives flagged as diverging from consensus",
			},
			[]string{"severity"},
		),
		ConsensusAgreement: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "consensus_agreement",
				Help:      "Fraction of participants in the consensus cluster",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		CycleFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "cycle_failures_total",
				Help:      "Activation cycles that failed as a whole",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.PersonaInvocations,
		m.Retries,
		m.CycleDuration,
		m.Hallucinations,
		m.ConsensusAgreement,
		m.CycleFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// #endregion

// #region recorders

// PersonaFinished records the outcome of a persona task.
func (m *Metrics) PersonaFinished(persona, outcome string) {
	if m == nil {
		return
	}
	m.PersonaInvocations.WithLabelValues(persona, outcome).Inc()
}

// RetryScheduled records a retry for persona.
func (m *Metrics) RetryScheduled(persona string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(persona).Inc()
}

// CycleFinished records a cycle's duration, and counts it as failed when fatal.
func (m *Metrics) CycleFinished(mode string, d time.Duration, fatal bool) {
	if m == nil {
		return
	}
	m.CycleDuration.WithLabelValues(mode).Observe(d.Seconds())
	if fatal {
		m.CycleFailures.Inc()
	}
}

// HallucinationFlagged records one flagged perspective.
func (m *Metrics) HallucinationFlagged(severity string) {
	if m == nil {
		return
	}
	m.Hallucinations.WithLabelValues(severity).Inc()
}

// ConsensusBuilt records a consensus agreement score.
func (m *Metrics) ConsensusBuilt(agreement float64) {
	if m == nil {
		return
	}
	m.ConsensusAgreement.Observe(agreement)
}

// #endregion
