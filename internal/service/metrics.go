package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"certdocs/internal/model"
)

// Metrics counts workflow outcomes.
type Metrics struct {
	operations       *prometheus.CounterVec
	policyViolations *prometheus.CounterVec
}

// NewMetrics creates and registers the workflow collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_operations_total",
				Help: "Document workflow operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_policy_violations_total",
				Help: "Uploads rejected by the validation policy, by category and rule.",
			},
			[]string{"category", "rule"},
		),
	}
	for _, c := range []prometheus.Collector{m.operations, m.policyViolations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) violation(err error) {
	if m == nil {
		return
	}
	var e *model.Error
	if errors.As(err, &e) && errors.Is(err, model.ErrPolicyViolation) {
		m.policyViolations.WithLabelValues(e.Subject, e.Rule).Inc()
	}
}

var outcomeLabels = []struct {
	kind  error
	label string
}{
	{model.ErrNotFound, "not_found"},
	{model.ErrAccessDenied, "access_denied"},
	{model.ErrInvalidState, "invalid_state"},
	{model.ErrPolicyViolation, "policy_violation"},
	{model.ErrDuplicateDocument, "duplicate"},
	{model.ErrStorageUnavailable, "storage_unavailable"},
	{model.ErrPersistenceUnavailable, "persistence_unavailable"},
	{model.ErrConfiguration, "configuration"},
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomeLabels {
		if errors.Is(err, o.kind) {
			return o.label
		}
	}
	return "error"
}
