package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Courtbook server.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Notification dispatcher metrics.
	NotifyEnqueuedTotal prometheus.Counter
	NotifyDroppedTotal  prometheus.Counter
	NotifySentTotal     prometheus.Counter
	NotifyFailuresTotal prometheus.Counter
	NotifyQueueDepth    prometheus.Gauge

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtbook_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courtbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtbook_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"kind"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtbook_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"kind"}),

		NotifyEnqueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtbook_notify_enqueued_total",
			Help: "Total number of notification jobs enqueued.",
		}),

		NotifyDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtbook_notify_dropped_total",
			Help: "Total number of notification jobs dropped because the queue was full.",
		}),

		NotifySentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtbook_notify_sent_total",
			Help: "Total number of notification emails sent.",
		}),

		NotifyFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtbook_notify_failures_total",
			Help: "Total number of failed notification dispatches.",
		}),

		NotifyQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtbook_notify_queue_depth",
			Help: "Current number of queued notification jobs.",
		}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtbook_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.NotifyEnqueuedTotal,
		m.NotifyDroppedTotal,
		m.NotifySentTotal,
		m.NotifyFailuresTotal,
		m.NotifyQueueDepth,
		m.ServerStartTime,
	)

	m.ServerStartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncAuthFailure increments the auth failure counter for the given kind.
func (m *Metrics) IncAuthFailure(kind string) {
	m.AuthFailuresTotal.WithLabelValues(kind).Inc()
}

// IncAuthSuccess increments the auth success counter for the given kind.
func (m *Metrics) IncAuthSuccess(kind string) {
	m.AuthSuccessesTotal.WithLabelValues(kind).Inc()
}

// NotifyEnqueued increments the enqueued notification counter.
func (m *Metrics) NotifyEnqueued() {
	m.NotifyEnqueuedTotal.Inc()
}

// NotifyDropped increments the dropped notification counter.
func (m *Metrics) NotifyDropped() {
	m.NotifyDroppedTotal.Inc()
}

// NotifySent adds the number of emails delivered in one batch.
func (m *Metrics) NotifySent(count int) {
	m.NotifySentTotal.Add(float64(count))
}

// NotifyFailed increments the failed dispatch counter.
func (m *Metrics) NotifyFailed() {
	m.NotifyFailuresTotal.Inc()
}

// SetNotifyQueueDepth records the current queue depth.
func (m *Metrics) SetNotifyQueueDepth(depth int) {
	m.NotifyQueueDepth.Set(float64(depth))
}
