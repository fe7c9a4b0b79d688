// Package metrics holds the Prometheus collectors exported by rentd.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/rentals/internal/events"
)

const namespace = "rentals"

// Refresh results.
const (
	RefreshOK       = "ok"
	RefreshDegraded = "degraded"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight     prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	dashboardRefresh *prometheus.CounterVec
	dashboardLatency prometheus.Histogram
	mutations        *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"service", "method", "path"}),
		dashboardRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "refreshes_total",
			Help:      "Landlord statistics refreshes by result.",
		}, []string{"result"}),
		dashboardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of landlord statistics refreshes.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "landlord",
			Name:      "mutations_total",
			Help:      "Successful landlord writes by entity and action.",
		}, []string{"entity", "action"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.dashboardRefresh,
		m.dashboardLatency,
		m.mutations,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one served request. path should be the route
// template, not the raw URL, to bound label cardinality.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordDashboardRefresh records a statistics refresh.
func (m *Metrics) RecordDashboardRefresh(result string, duration time.Duration) {
	m.dashboardRefresh.WithLabelValues(result).Inc()
	m.dashboardLatency.Observe(duration.Seconds())
}

// RecordMutation counts a successful landlord write.
func (m *Metrics) RecordMutation(entity, action string) {
	m.mutations.WithLabelValues(entity, action).Inc()
}

// ObserveBus counts every mutation published on bus until the returned
// function is called.
func (m *Metrics) ObserveBus(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(func(_ context.Context, mu events.Mutation) {
		m.RecordMutation(string(mu.Entity), string(mu.Action))
	})
}
