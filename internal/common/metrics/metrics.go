// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

var (
	UnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitcheck_units_total",
			Help: "Total number of units of work processed per engine",
		},
		[]string{"engine", "outcome"},
	)

	UnitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitcheck_unit_duration_seconds",
			Help:    "Duration of a single unit of work in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"engine"},
	)

	DegradedResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitcheck_degraded_results_total",
			Help: "Total number of fallback or placeholder results returned",
		},
		[]string{"engine", "reason"},
	)

	UnitsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fitcheck_units_active",
			Help: "Number of units of work currently running per engine",
		},
		[]string{"engine"},
	)

	JobErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitcheck_job_errors_total",
			Help: "Zeebe job errors by task type, error code and action (fail or throw)",
		},
		[]string{"task_type", "code", "action"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fitcheck_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// TrackUnit marks a unit active and returns a func that records its outcome.
func TrackUnit(engine string) func(outcome string) {
	start := time.Now()
	UnitsActive.WithLabelValues(engine).Inc()
	return func(outcome string) {
		UnitsActive.WithLabelValues(engine).Dec()
		UnitDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
		UnitsTotal.WithLabelValues(engine, outcome).Inc()
	}
}

func RecordDegraded(engine, reason string) {
	DegradedResults.WithLabelValues(engine, reason).Inc()
}
