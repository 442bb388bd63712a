// Package metrics exposes Prometheus metrics for the matrix service.
//
// A Metrics value owns its own registry, so tests and parallel service
// instances never collide on the global default registerer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/attrmatrix/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attrmatrix"

// Operation result labels.
const (
	ResultOK        = "ok"
	ResultInvalid   = "invalid_input"
	ResultNotFound  = "not_found"
	ResultDuplicate = "duplicate_name"
	ResultInternal  = "internal"
)

var _ core.Recorder = (*Metrics)(nil)

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	operations    *prometheus.CounterVec
	importRows    prometheus.Histogram
	spellFailures prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Matrix operations by name and result.",
		}, []string{"op", "result"}),
		importRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_rows",
			Help:      "Rows per successfully imported snapshot.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		spellFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spell_failures_total",
			Help:      "Spell derivations that degraded to an empty value.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.operations,
		m.importRows,
		m.spellFailures,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveOperation implements core.Recorder.
func (m *Metrics) ObserveOperation(op string, err error) {
	m.operations.WithLabelValues(op, Result(err)).Inc()
}

// ObserveImportRows implements core.Recorder.
func (m *Metrics) ObserveImportRows(n int) {
	m.importRows.Observe(float64(n))
}

// SpellFailed implements core.Recorder.
func (m *Metrics) SpellFailed() {
	m.spellFailures.Inc()
}

// Result maps an operation error to its result label.
func Result(err error) string {
	switch core.KindOf(err) {
	case nil:
		return ResultOK
	case core.ErrInvalidInput:
		return ResultInvalid
	case core.ErrNotFound:
		return ResultNotFound
	case core.ErrDuplicateName:
		return ResultDuplicate
	default:
		return ResultInternal
	}
}
