// Package metrics provides Prometheus metrics for webinarhub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionValidations counts session validations by outcome.
	SessionValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webinarhub",
			Name:      "session_validations_total",
			Help:      "Total number of session validations",
		},
		[]string{"outcome"},
	)

	// RegistrationOps counts registration ledger operations.
	RegistrationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webinarhub",
			Name:      "registration_operations_total",
			Help:      "Total number of registration operations",
		},
		[]string{"operation", "outcome"},
	)

	// SessionsSwept counts sessions deactivated by the expiry sweep.
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "webinarhub",
			Name:      "sessions_swept_total",
			Help:      "Total number of expired sessions deactivated by the sweep",
		},
	)

	// RateLimited counts requests rejected by the per-IP limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "webinarhub",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)

	// WebSocketClients tracks connected websocket clients.
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "webinarhub",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		},
	)
)

// RecordValidation records the outcome of a session validation.
func RecordValidation(outcome string) {
	SessionValidations.WithLabelValues(outcome).Inc()
}

// RecordRegistration records the outcome of a ledger operation.
func RecordRegistration(operation, outcome string) {
	RegistrationOps.WithLabelValues(operation, outcome).Inc()
}
