// Package metrics exposes Prometheus instrumentation for the dashboard.
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

const namespace = "signalboard"

// Metrics holds every collector on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	clusteringRuns     prometheus.Counter
	clusteringDuration prometheus.Histogram
	clusters           prometheus.Gauge
	scenariosGenerated prometheus.Counter
	ingestFallbacks    *prometheus.CounterVec
	logEvents          *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates a Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		clusteringRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clustering_runs_total",
			Help:      "Total clustering runs",
		}),
		clusteringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clustering_duration_seconds",
			Help:      "Duration of keyword assignment, excluding the artificial delay",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		clusters: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clusters",
			Help:      "Number of clusters in the current result set",
		}),
		scenariosGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_generated_total",
			Help:      "Total scenarios produced by the recommendation engine",
		}),
		ingestFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "fallbacks_total",
			Help:      "Sources served from built-in data because they were unavailable",
		}, []string{"source"}),
		logEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_events_total",
			Help:      "Activity log events appended",
		}, []string{"action"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveClustering records one clustering run.
func (m *Metrics) ObserveClustering(d time.Duration, clusters int) {
	if m == nil {
		return
	}
	m.clusteringRuns.Inc()
	m.clusteringDuration.Observe(d.Seconds())
	m.clusters.Set(float64(clusters))
}

// AddScenarios counts newly generated scenarios.
func (m *Metrics) AddScenarios(n int) {
	if m == nil {
		return
	}
	m.scenariosGenerated.Add(float64(n))
}

// RecordFallback counts a degraded ingestion source.
func (m *Metrics) RecordFallback(source string) {
	if m == nil {
		return
	}
	m.ingestFallbacks.WithLabelValues(source).Inc()
}

// RecordLog counts an appended activity log event.
func (m *Metrics) RecordLog(action string) {
	if m == nil {
		return
	}
	m.logEvents.WithLabelValues(action).Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
