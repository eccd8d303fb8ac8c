package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal          *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec
	ErrorsTotal            *prometheus.CounterVec
	AutoLoginOutcomes      *prometheus.CounterVec
	CredentialRejections   *prometheus.CounterVec
	PasswordLogins         *prometheus.CounterVec
	ReplayEvictionsTotal   prometheus.Counter
	AuthEventsTotal        *prometheus.CounterVec
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordertagger_http_requests_total",
				Help: "HTTP requests by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		RequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ordertagger_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordertagger_http_errors_total",
				Help: "HTTP error responses by route, method and error code.",
			},
			[]string{"route", "method", "code"},
		),
		AutoLoginOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordertagger_autologin_outcomes_total",
				Help: "Auto-login attempts by public outcome.",
			},
			[]string{"outcome"},
		),
		CredentialRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordertagger_autologin_credential_rejections_total",
				Help: "Rejected auto-login credentials by internal failure kind.",
			},
			[]string{"kind"},
		),
		PasswordLogins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordertagger_password_logins_total",
				Help: "Password login attempts by result.",
			},
			[]string{"result"},
		),
		ReplayEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ordertagger_replay_evictions_total",
				Help: "Consumed credentials evicted after their retention elapsed.",
			},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ordertagger_auth_events_total",
				Help: "Audit events published by type.",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDurationSeconds,
		m.ErrorsTotal,
		m.AutoLoginOutcomes,
		m.CredentialRejections,
		m.PasswordLogins,
		m.ReplayEvictionsTotal,
		m.AuthEventsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDurationSeconds.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordAutoLogin counts a finished auto-login attempt.
func (m *Metrics) RecordAutoLogin(outcome string) {
	if m == nil {
		return
	}
	m.AutoLoginOutcomes.WithLabelValues(outcome).Inc()
}

// RecordCredentialRejection counts a rejected credential by its internal kind.
func (m *Metrics) RecordCredentialRejection(kind string) {
	if m == nil {
		return
	}
	m.CredentialRejections.WithLabelValues(kind).Inc()
}

// RecordPasswordLogin counts a password login attempt.
func (m *Metrics) RecordPasswordLogin(result string) {
	if m == nil {
		return
	}
	m.PasswordLogins.WithLabelValues(result).Inc()
}

// RecordReplayEvictions adds n evicted replay entries.
func (m *Metrics) RecordReplayEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ReplayEvictionsTotal.Add(float64(n))
}

// RecordAuthEvent counts a published audit event.
func (m *Metrics) RecordAuthEvent(eventType string) {
	if m == nil {
		return
	}
	m.AuthEventsTotal.WithLabelValues(eventType).Inc()
}
