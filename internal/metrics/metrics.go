// Package metrics exposes Prometheus counters for the registration workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campusevents-backend/internal/apperrors"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Registrations counts register and unregister attempts by outcome.
// A nil *Registrations is valid and records nothing.
type Registrations struct {
	registered   *prometheus.CounterVec
	unregistered *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Registrations {
	factory := promauto.With(reg)
	return &Registrations{
		registered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		unregistered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_unregistrations_total",
			Help: "Unregistration attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveRegister records the result of a register call.
func (m *Registrations) ObserveRegister(err error) {
	if m == nil {
		return
	}
	m.registered.WithLabelValues(Outcome(err)).Inc()
}

// ObserveUnregister records the result of an unregister call.
func (m *Registrations) ObserveUnregister(err error) {
	if m == nil {
		return
	}
	m.unregistered.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	switch apperrors.CodeOf(err) {
	case apperrors.CodeDuplicateRegistration:
		return OutcomeDuplicate
	case apperrors.CodeEventNotFound, apperrors.CodeRegistrationNotFound:
		return OutcomeNotFound
	case apperrors.CodeInvalidInput:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
