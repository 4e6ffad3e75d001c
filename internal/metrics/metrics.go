// Package metrics exposes Prometheus metrics for report generation, the
// dropdown cache and the HTTP surface.
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

type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry replaces the private registry, mainly for tests.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtime = true
	}
}

// Manager owns every metric of the service. A nil *Manager is valid and
// records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry
	runtime   bool

	reports        *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	eventsScanned  *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "fleet_analytics",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.reports = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "report",
		Name:      "built_total",
		Help:      "Reports built, by report kind, operation and outcome",
	}, []string{"kind", "operation", "status"})

	m.reportDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "report",
		Name:      "duration_seconds",
		Help:      "Time to build a report, store queries included",
		Buckets:   m.buckets,
	}, []string{"kind", "operation"})

	m.eventsScanned = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "report",
		Name:      "events_scanned_total",
		Help:      "Events loaded from the store for aggregation",
	}, []string{"kind"})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by cache name and result",
	}, []string{"cache", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route",
		Buckets:   m.buckets,
	}, []string{"method", "route"})
}

// ObserveReport records one report build.
func (m *Manager) ObserveReport(kind, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.reports.WithLabelValues(kind, operation, status).Inc()
	m.reportDuration.WithLabelValues(kind, operation).Observe(time.Since(started).Seconds())
}

func (m *Manager) AddEventsScanned(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsScanned.WithLabelValues(kind).Add(float64(n))
}

func (m *Manager) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (m *Manager) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

func (m *Manager) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
