// Package breaker builds the circuit breakers wrapped around provider clients.
package breaker

import (
	"errors"
	"net/http"

	"fitcheck-workers/internal/common/config"
	apperrors "fitcheck-workers/internal/common/errors"
	commonhttp "fitcheck-workers/internal/common/http"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/metrics"

	"github.com/sony/gobreaker/v2"
)

// New returns a breaker that trips after cfg.FailureThreshold consecutive failures.
// Client errors (4xx other than 429) do not count against the provider.
func New[T any](name string, cfg config.BreakerConfig, log logger.Logger) *gobreaker.CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    config.GetDuration(cfg.Interval),
		Timeout:     config.GetDuration(cfg.Timeout),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: IsSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})
}

func IsSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode < 500 && statusErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// IsOpen reports whether err was produced by an open or saturated breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// ClassifyError maps a failed provider call to a StandardError.
func ClassifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return err
	}
	if commonhttp.IsTimeout(err) {
		return apperrors.NewProviderTimeoutError(provider).WithMetadata("cause", err.Error())
	}
	return apperrors.NewProviderUnavailableError(provider, err)
}
