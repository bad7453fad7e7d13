// Package metrics holds the Prometheus collectors for the engagement engine.
package metrics

import (
	"errors"

	"go-engage/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "engage"

// Outcome labels for submissions.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	DetailSubmissions  *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	StateComputation   prometheus.Histogram
	StateCacheLookups  *prometheus.CounterVec
	EngagementsStarted prometheus.Counter
	EngagementsClosed  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DetailSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_submissions_total",
			Help:      "Engagement detail submissions by outcome.",
		}, []string{"outcome", "finished"}),
		ValidationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected submissions by failure kind.",
		}, []string{"kind"}),
		StateComputation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "state_computation_seconds",
			Help:      "Time spent loading and computing engagement state.",
			Buckets:   prometheus.DefBuckets,
		}),
		StateCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_cache_lookups_total",
			Help:      "Engagement state cache lookups by result.",
		}, []string{"result"}),
		EngagementsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagements_started_total",
			Help:      "Engagements created.",
		}),
		EngagementsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagements_finished_total",
			Help:      "Engagements explicitly finished.",
		}),
	}
	reg.MustRegister(
		m.DetailSubmissions,
		m.ValidationFailures,
		m.StateComputation,
		m.StateCacheLookups,
		m.EngagementsStarted,
		m.EngagementsClosed,
	)
	return m
}

// FailureKind names the validation failure class of err, or "" for other errors.
func FailureKind(err error) string {
	var s *domain.StructuralValidationError
	var n *domain.NavigationOrderError
	var sc *domain.SchemaValidationError
	switch {
	case errors.As(err, &s):
		return "structural"
	case errors.As(err, &n):
		return "navigation"
	case errors.As(err, &sc):
		return "schema"
	}
	return ""
}

// ObserveSubmission records the outcome of one detail submission.
func (m *Metrics) ObserveSubmission(finished bool, err error) {
	fin := "false"
	if finished {
		fin = "true"
	}
	switch kind := FailureKind(err); {
	case err == nil:
		m.DetailSubmissions.WithLabelValues(OutcomeAccepted, fin).Inc()
	case kind != "":
		m.DetailSubmissions.WithLabelValues(OutcomeRejected, fin).Inc()
		m.ValidationFailures.WithLabelValues(kind).Inc()
	default:
		m.DetailSubmissions.WithLabelValues(OutcomeError, fin).Inc()
	}
}
