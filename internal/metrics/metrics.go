// Package metrics exposes Prometheus collectors for a card generation run.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan outcomes recorded by ObserveScan.
const (
	ScanIncluded = "included"
	ScanExcluded = "excluded"
	ScanFailed   = "failed"
)

// Render outcomes recorded by ObserveRender.
const (
	RenderSucceeded = "succeeded"
	RenderFailed    = "failed"
	RenderSkipped   = "skipped"
)

// Metrics groups the collectors of one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scanFiles           *prometheus.CounterVec
	renderJobs          *prometheus.CounterVec
	renderDuration      prometheus.Histogram
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		scanFiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogcards_scan_files_total",
				Help: "Markdown files visited by the scanner, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		renderJobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogcards_render_jobs_total",
				Help: "Render jobs attempted, labeled by status.",
			},
			[]string{"status"},
		),
		renderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ogcards_render_duration_seconds",
				Help:    "Histogram of per-job render latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ogcards_http_requests_total",
				Help: "Requests answered by the content server, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ogcards_http_request_duration_seconds",
				Help:    "Histogram of content server latencies, labeled by method.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method"},
		),
	}
}

// ObserveScan counts one scanned file.
func (m *Metrics) ObserveScan(outcome string) {
	if m == nil {
		return
	}
	m.scanFiles.WithLabelValues(outcome).Inc()
}

// ObserveRender counts one render attempt and its latency.
func (m *Metrics) ObserveRender(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.renderJobs.WithLabelValues(status).Inc()
	if status != RenderSkipped {
		m.renderDuration.Observe(dur.Seconds())
	}
}

// ObserveHTTPRequest records one content server request.
func (m *Metrics) ObserveHTTPRequest(method string, code int, dur time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// Handler serves the run's registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
