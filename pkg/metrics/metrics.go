// Package metrics provides the centralized Prometheus metrics registry for
// the Zendesk export client. All metrics are defined in their respective
// packages (client, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the export client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - zendesk_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - zendesk_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - zendesk_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - zendesk_retries_total{error_class} (Counter): Retry attempts by error class
//   - zendesk_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - zendesk_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - zendesk_rate_limit_remaining (Gauge): Requests remaining in the current rate limit window
//   - zendesk_rate_limit_throttles_total (Counter): Requests throttled due to a low remaining budget
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(zendesk_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(zendesk_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion
//   rate(zendesk_retry_exhausted_total[5m])
//
//   # Rate Limit Headroom
//   zendesk_rate_limit_remaining < 20
