// Package metrics exposes the Prometheus metrics of the client.
// Metrics are defined with promauto in the packages that record them
// (client, ratelimit, pagination, sink); this package serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all client metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Path is where NewServer exposes metrics.
const Path = "/metrics"

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns an HTTP server exposing Handler on Path.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - jdy_requests_total{endpoint, status} (Counter): attempts by endpoint and HTTP status
//   - jdy_request_duration_seconds{endpoint} (Histogram): attempt duration
//   - jdy_errors_total{class} (Counter): failed attempts by class (client, server, rate_limit, network, malformed)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - jdy_rate_limit_retries_total{endpoint} (Counter): requests re-issued after code 8303
//   - jdy_rate_limit_wait_seconds_total (Counter): time spent waiting before retries
//   - jdy_rate_limit_waiting (Gauge): calls currently waiting
//
// Pagination Metrics (pkg/pagination):
//   - jdy_pages_fetched_total{name} (Counter): non-empty pages fetched
//   - jdy_records_fetched_total{name} (Counter): records fetched
//
// Sink Metrics (pkg/sink):
//   - jdy_sink_records_written_total{sink} (Counter): records written
//   - jdy_sink_errors_total{sink, operation} (Counter): failed sink operations
//
// Example Prometheus Queries:
//
//   # Throttled share of requests
//   sum(rate(jdy_rate_limit_retries_total[5m])) / sum(rate(jdy_requests_total[5m]))
//
//   # P95 attempt latency
//   histogram_quantile(0.95, rate(jdy_request_duration_seconds_bucket[5m]))
