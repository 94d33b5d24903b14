// Package metrics holds Prometheus instruments that are used across
// formstate.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Submit outcomes, used as the "outcome" label.
const (
	OutcomeSubmitted      = "submitted"
	OutcomeInvalid        = "invalid"
	OutcomeCallbackError  = "callback_error"
	OutcomeCanceled       = "canceled"
	OutcomeBusy           = "busy"
)

// Field validation results, used as the "result" label.
const (
	ResultValid     = "valid"
	ResultInvalid   = "invalid"
	ResultMalformed = "malformed"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstate_submissions_total",
			Help: "Submit cycles by outcome.",
		}, []string{"outcome"})

	FieldValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstate_field_validations_total",
			Help: "Single-field validations by result.",
		}, []string{"result"})

	// MalformedFormValidationsTotal counts whole-form failures that carried
	// no field errors.  The submit itself still proceeds and is counted
	// under SubmissionsTotal.
	MalformedFormValidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstate_form_validations_malformed_total",
			Help: "Whole-form validation failures without usable field errors.",
		})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "formstate_active_sessions",
			Help: "Number of form sessions currently held in memory.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstate_session_evict_total",
			Help: "Cumulative number of sessions evicted from memory.",
		})

	DefinitionLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstate_definition_load_total",
			Help: "Cumulative number of form definitions successfully loaded.",
		})

	DefinitionLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstate_definition_load_errors_total",
			Help: "Cumulative number of form definition load errors.",
		})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		FieldValidationsTotal,
		MalformedFormValidationsTotal,
		ActiveSessions,
		SessionEvictTotal,
		DefinitionLoadTotal,
		DefinitionLoadErrorsTotal,
	)
}
