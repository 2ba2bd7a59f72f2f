package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderdesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_auth_attempts_total",
		Help: "Count of registration and login attempts by result",
	}, []string{"operation", "result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "orderdesk_active_sessions",
		Help: "Number of live session records in the registry",
	})

	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_orders_placed_total",
		Help: "Count of placed orders by result",
	}, []string{"result"})

	orderRevenue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderdesk_order_revenue_total",
		Help: "Cumulative revenue of persisted orders",
	})

	fulfillmentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderdesk_fulfillment_requests_total",
		Help: "Count of order factory submissions by result",
	}, []string{"result"})

	fulfillmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderdesk_fulfillment_duration_seconds",
		Help:    "Duration of order factory submissions",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthAttempt increments the auth counter for an operation
// ("register", "login", "logout") and result ("success", "failure").
func ObserveAuthAttempt(operation, result string) {
	authAttempts.WithLabelValues(operation, result).Inc()
}

// SetActiveSessions sets the live-session gauge
func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}

// ObserveOrderPlaced records an order placement result
func ObserveOrderPlaced(result string) {
	ordersPlaced.WithLabelValues(result).Inc()
}

// AddOrderRevenue accumulates revenue for a persisted order
func AddOrderRevenue(amount float64) {
	if amount > 0 {
		orderRevenue.Add(amount)
	}
}

// ObserveFulfillment records the result and duration of a factory submission
func ObserveFulfillment(result string, duration time.Duration) {
	fulfillmentRequests.WithLabelValues(result).Inc()
	fulfillmentDuration.WithLabelValues(result).Observe(duration.Seconds())
}
