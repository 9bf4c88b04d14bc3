package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Status transitions by source and target status
	StatusTransitions *prometheus.CounterVec

	// Validation failures by machine code
	ValidationFailures *prometheus.CounterVec

	// Payments and refunds recorded
	PaymentsRecorded *prometheus.CounterVec

	// Latency of full registration write operations
	OperationLatency *prometheus.HistogramVec

	// Optimistic concurrency conflicts that triggered a retry
	VersionConflicts prometheus.Counter
}

// New creates a Metrics instance with all registration metrics registered.
func New() *Metrics {
	return &Metrics{
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compreg_registration_status_transitions_total",
			Help: "Total competing status transitions by source and target",
		}, []string{"from", "to"}),

		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compreg_registration_validation_failures_total",
			Help: "Total validation rule failures by machine code",
		}, []string{"code"}),

		PaymentsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compreg_registration_payments_total",
			Help: "Total payment ledger rows recorded by kind",
		}, []string{"kind"}), // kind: "payment", "refund"

		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compreg_registration_operation_duration_seconds",
			Help:    "Duration of registration write operations including validation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compreg_registration_version_conflicts_total",
			Help: "Total optimistic concurrency conflicts that triggered a retry",
		}),
	}
}

// ObserveTransition records a competing status transition.
func (m *Metrics) ObserveTransition(from, to string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(from, to).Inc()
	}
}

// ObserveValidationFailure records one rule failure.
func (m *Metrics) ObserveValidationFailure(code string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(code).Inc()
	}
}

// ObservePayment records a payment or refund ledger row.
func (m *Metrics) ObservePayment(kind string) {
	if m != nil {
		m.PaymentsRecorded.WithLabelValues(kind).Inc()
	}
}

// ObserveOperation records the duration of a write operation.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObserveVersionConflict records a lost optimistic version check.
func (m *Metrics) ObserveVersionConflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}
