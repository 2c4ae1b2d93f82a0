// Package metrics exposes taskbot's Prometheus collectors.
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

const namespace = "taskbot"

// Metrics holds all collectors, registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	WebhookEvents   *prometheus.CounterVec
	Intents         *prometheus.CounterVec
	RateLimited     prometheus.Counter
	MessagesSent    *prometheus.CounterVec
	StoreErrors     prometheus.Counter
	TaskChanges     *prometheus.CounterVec
	TasksStored     prometheus.Gauge
	WSClients       prometheus.Gauge
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Messaging events received through the webhook by kind",
		}, []string{"kind"}),

		Intents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Resolved conversation intents",
		}, []string{"intent"}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Events answered with a slow-down notice",
		}),

		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound Send API calls by result",
		}, []string{"result"}),

		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Events dropped because a store operation failed",
		}),

		TaskChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_changes_total",
			Help:      "Committed task mutations by type",
		}, []string{"type"}),

		TasksStored: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_stored",
			Help:      "Tasks in the store at the last maintenance run",
		}),

		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected task feed websocket clients",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ActionResolved counts a resolved intent.
func (m *Metrics) ActionResolved(intent string) {
	m.Intents.WithLabelValues(intent).Inc()
}

// RateLimitHit counts an event answered with a slow-down notice.
func (m *Metrics) RateLimitHit() {
	m.RateLimited.Inc()
}

// SendResult counts an outbound send.
func (m *Metrics) SendResult(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.MessagesSent.WithLabelValues(result).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
