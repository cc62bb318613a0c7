// Package metrics : prometheus метрики HTTP слоя и операций аутентификации
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "community_platform"

// Исходы операций аутентификации
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

var (
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10),
		},
		[]string{"method", "route"},
	)

	// AuthOperationsTotal : login, refresh, logout, change_password, reset_password
	AuthOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_operations_total",
			Help:      "Total number of session operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	UserCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_cache_requests_total",
			Help:      "User profile cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)
)

// ObserveAuth : учитывает исход операции; ошибка клиента считается failure, остальные error
func ObserveAuth(operation string, err error, clientErrors ...error) {
	AuthOperationsTotal.WithLabelValues(operation, Outcome(err, clientErrors...)).Inc()
}

func Outcome(err error, clientErrors ...error) string {
	if err == nil {
		return OutcomeSuccess
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return OutcomeFailure
		}
	}
	return OutcomeError
}
