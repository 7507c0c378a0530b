// Package metrics provides Prometheus metrics for the instrumentation engine.
// It lives under pkg so the instrumenter and the sinks can share it without import cycles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// callDuration tracks instrumented call duration in seconds
	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "instrument_call_duration_seconds",
			Help:    "Instrumented call duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 10},
		},
		[]string{"unit", "status"},
	)

	// callTotal tracks total instrumented calls
	callTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instrument_calls_total",
			Help: "Total number of instrumented calls",
		},
		[]string{"unit", "status"},
	)

	// bindingErrors tracks calls whose arguments could not be bound
	bindingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instrument_binding_errors_total",
			Help: "Total number of calls rejected by the signature resolver",
		},
		[]string{"unit"},
	)

	// recordsEmitted tracks records handed to a sink
	recordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instrument_records_emitted_total",
			Help: "Total number of call records delivered to a sink",
		},
		[]string{"sink"},
	)

	// recordsDropped tracks records dropped because a queue overflowed
	recordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instrument_records_dropped_total",
			Help: "Total number of call records dropped on queue overflow",
		},
		[]string{"sink"},
	)

	// sinkFailures tracks sink errors and panics
	sinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instrument_sink_failures_total",
			Help: "Total number of failed record deliveries",
		},
		[]string{"sink"},
	)
)

// RecordCall records metrics for one finished instrumented call
func RecordCall(unit, status string, duration time.Duration) {
	callTotal.WithLabelValues(unit, status).Inc()
	callDuration.WithLabelValues(unit, status).Observe(duration.Seconds())
}

// RecordBindingError records a call rejected before it ran
func RecordBindingError(unit string) {
	bindingErrors.WithLabelValues(unit).Inc()
}

// RecordEmitted records n records delivered to a sink
func RecordEmitted(sink string, n int) {
	recordsEmitted.WithLabelValues(sink).Add(float64(n))
}

// RecordDropped records n records dropped by a sink
func RecordDropped(sink string, n int) {
	recordsDropped.WithLabelValues(sink).Add(float64(n))
}

// RecordSinkFailure records a failed delivery
func RecordSinkFailure(sink string) {
	sinkFailures.WithLabelValues(sink).Inc()
}
