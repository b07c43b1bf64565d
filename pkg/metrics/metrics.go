// Package metrics provides the centralized Prometheus registry reference
// for the Helix client. All metrics are defined in their respective
// packages (client, auth, ratelimit, transport) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Helix client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - helix_requests_total{endpoint, status} (Counter): Transport responses by endpoint and HTTP status
//   - helix_request_duration_seconds{endpoint} (Histogram): Logical request duration by endpoint
//   - helix_auth_retries_total (Counter): Requests retried after a token refresh
//
// Token Metrics (pkg/auth):
//   - helix_token_refreshes_total (Counter): Successful app access token refreshes
//   - helix_token_refresh_failures_total (Counter): Rejected or failed token exchanges
//
// Rate Limit Metrics (pkg/ratelimit):
//   - helix_ratelimit_remaining (Gauge): Requests remaining in the current bucket
//   - helix_ratelimit_waits_total (Counter): Waits for bucket reset after a 429
//   - helix_ratelimit_wait_seconds (Histogram): Duration of bucket-reset waits
//
// Transport Metrics (pkg/transport):
//   - helix_transport_retries_total{reason} (Counter): Retry attempts by reason (network, server)
//   - helix_transport_backoff_seconds{reason} (Histogram): Backoff duration before retries
//   - helix_transport_retry_exhausted_total (Counter): Requests that exhausted transport retries
//
// Example Prometheus Queries:
//
//   # Requests per second by endpoint
//   sum by (endpoint) (rate(helix_requests_total[5m]))
//
//   # Throttle pressure
//   rate(helix_ratelimit_waits_total[5m])
//
//   # Bucket headroom
//   helix_ratelimit_remaining < 50
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(helix_request_duration_seconds_bucket[5m]))
//
//   # Token refresh failure ratio
//   rate(helix_token_refresh_failures_total[5m]) / rate(helix_token_refreshes_total[5m])
