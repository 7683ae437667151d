// Package metrics provides Prometheus metrics collection for HTTP server
// and model-call monitoring. It exports:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - model_call_total: Counter with status label for upstream model calls
//   - model_call_duration_seconds: Histogram for upstream model latency
//   - store_documents_total: Gauge with collection label, refreshed by the
//     stats scheduler
//
// All metrics are automatically registered with the Prometheus default
// registry during package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	ModelCallTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_call_total",
			Help: "Total upstream model calls",
		},
		[]string{"status"},
	)

	ModelCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_call_duration_seconds",
			Help:    "Upstream model call latency",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	StoreDocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_documents_total",
			Help: "Documents per collection at last stats refresh",
		},
		[]string{"collection"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(ModelCallTotals)
	prometheus.MustRegister(ModelCallDuration)
	prometheus.MustRegister(StoreDocumentsTotal)
}

// ObserveModelCall records one upstream model call.
func ObserveModelCall(duration time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	ModelCallTotals.WithLabelValues(status).Inc()
	ModelCallDuration.Observe(duration.Seconds())
}
