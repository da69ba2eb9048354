// Package metrics holds the Prometheus collectors for the pricer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "optionpricer"

type Metrics struct {
	CalculationsTotal *prometheus.CounterVec
	GridsTotal        *prometheus.CounterVec
	GridCellsTotal    prometheus.Counter
	GridDuration      prometheus.Histogram
	StoreFailures     *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		CalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Valuations computed, by operation.",
		}, []string{"op"}),
		GridsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grids_total",
			Help:      "Sensitivity grids generated, by mode.",
		}, []string{"mode"}),
		GridCellsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grid_cells_total",
			Help:      "Grid cells evaluated.",
		}),
		GridDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grid_duration_seconds",
			Help:      "Grid generation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "History store operations that failed.",
		}, []string{"op"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.CalculationsTotal,
		m.GridsTotal,
		m.GridCellsTotal,
		m.GridDuration,
		m.StoreFailures,
		m.HTTPRequests,
		m.HTTPDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
// Compression is left to the server's gzip middleware.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}
