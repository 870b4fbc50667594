package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tdhub/commandhub/internal/domain/shared"
)

const namespace = "commandhub"

// Metrics holds the service's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	domainEvents  *prometheus.CounterVec
	emailOutcomes *prometheus.CounterVec
	aiCalls       *prometheus.CounterVec
	aiDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors, including the Go runtime
// and process collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		domainEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Domain events published, by type.",
		}, []string{"type"}),
		emailOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Email delivery attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_calls_total",
			Help:      "Upstream AI provider calls, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		aiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_call_duration_seconds",
			Help:      "Upstream AI provider latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"provider"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.domainEvents,
		m.emailOutcomes,
		m.aiCalls,
		m.aiDuration,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted increments the in-flight gauge; call the returned func when done
func (m *Metrics) RequestStarted() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveHTTP records a finished request. route is the matched pattern, never the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveEmail implements email.DeliveryObserver
func (m *Metrics) ObserveEmail(kind string, outcome string) {
	if kind == "" {
		kind = "unknown"
	}
	m.emailOutcomes.WithLabelValues(kind, outcome).Inc()
}

// ObserveAICall implements the chat service observer
func (m *Metrics) ObserveAICall(provider, outcome string, elapsed time.Duration) {
	m.aiCalls.WithLabelValues(provider, outcome).Inc()
	m.aiDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// EventCounter returns an event handler counting every published event
func (m *Metrics) EventCounter() shared.EventHandler {
	return eventCounter{counter: m.domainEvents}
}

type eventCounter struct {
	counter *prometheus.CounterVec
}

func (e eventCounter) EventTypes() []string { return nil }

func (e eventCounter) Handle(_ context.Context, evt shared.DomainEvent) error {
	e.counter.WithLabelValues(evt.EventType()).Inc()
	return nil
}
