// Package metrics exposes the Prometheus registry and HTTP handler used by
// clinic-catalog. Metrics themselves are defined next to the code that
// records them (pager, client, cache, ratelimit, pagination) and registered
// through promauto on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all package metrics are created on.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer backing Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// List Controller Metrics (pkg/pager):
//   - pager_fetches_total{list, outcome} (Counter): Completed page fetches (success, error, stale)
//   - pager_fetch_duration_seconds{list} (Histogram): Page fetch latency
//   - pager_local_reveals_total{list} (Counter): Show-more actions served locally
//   - pager_duplicates_skipped_total{list} (Counter): Items dropped by id dedupe
//
// Request Metrics (pkg/client):
//   - clinic_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - clinic_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - clinic_api_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - clinic_api_retries_total{error_class} (Counter): Retry attempts
//   - clinic_api_retry_backoff_seconds{error_class} (Histogram): Backoff durations
//   - clinic_api_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Cache Metrics (pkg/cache):
//   - clinic_cache_hits_total{layer="redis"} (Counter)
//   - clinic_cache_misses_total (Counter)
//   - clinic_cache_stored_bytes_total{layer="redis"} (Counter)
//   - clinic_304_responses_total (Counter)
//   - clinic_conditional_requests_total (Counter)
//   - clinic_cache_errors_total{operation} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - clinic_rate_limit_remaining (Gauge): Requests remaining in the API throttle window
//   - clinic_rate_limit_blocks_total (Counter): Requests blocked locally
//   - clinic_rate_limit_throttles_total (Counter): Requests delayed locally
//
// Batch Metrics (pkg/pagination):
//   - batch_pages_fetched_total{outcome} (Counter): Pages fetched by BatchFetcher
//
// Example Prometheus Queries:
//
//   # Share of show-more clicks that needed no request
//   sum(rate(pager_local_reveals_total[5m])) /
//   (sum(rate(pager_local_reveals_total[5m])) + sum(rate(pager_fetches_total{outcome="success"}[5m])))
//
//   # P95 API latency
//   histogram_quantile(0.95, rate(clinic_api_request_duration_seconds_bucket[5m]))
//
//   # Cache hit rate
//   sum(rate(clinic_cache_hits_total[5m])) /
//   (sum(rate(clinic_cache_hits_total[5m])) + sum(rate(clinic_cache_misses_total[5m])))
