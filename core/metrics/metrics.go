package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts Klaviyo API responses by method, endpoint and status.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klaviyo_api_requests_total",
			Help: "Total number of Klaviyo API responses",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APITransportErrors counts requests that never produced a response.
	APITransportErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klaviyo_api_transport_errors_total",
			Help: "Total number of Klaviyo API requests that failed before a response",
		},
		[]string{"method", "endpoint"},
	)

	// RateLimitRetries counts requests replayed after HTTP 429.
	RateLimitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "klaviyo_rate_limit_retries_total",
			Help: "Total number of requests retried after a rate-limit response",
		},
	)

	// TokenRefreshes counts OAuth refresh outcomes (success, rejected, transport, persist).
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klaviyo_token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState tracks the data-request breaker (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "klaviyo_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// RecordsProcessed counts reconciled records by action and outcome.
	RecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klaviyo_records_processed_total",
			Help: "Total number of records reconciled by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// SubscriptionJobs counts bulk subscription jobs by type and outcome.
	SubscriptionJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "klaviyo_subscription_jobs_total",
			Help: "Total number of bulk subscription jobs submitted",
		},
		[]string{"type", "outcome"},
	)
)

// Outcome maps an error to the "success"/"failure" label value.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
