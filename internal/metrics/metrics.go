// Package metrics holds the Prometheus collectors for the categorizer.
//
// A nil [*Metrics] is valid and records nothing, so library code and tests can skip instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytcat"

// Metrics groups every collector. Create it once with [New].
type Metrics struct {
	registry *prometheus.Registry

	APICalls        *prometheus.CounterVec
	APIRetries      *prometheus.CounterVec
	QuotaUnits      prometheus.Counter
	QuotaRemaining  prometheus.Gauge
	TokenRefreshes  *prometheus.CounterVec
	Classifications *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		APICalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "youtube_api_calls_total",
				Help:      "YouTube Data API calls, by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		APIRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "youtube_api_retries_total",
				Help:      "Retried YouTube Data API calls, by endpoint.",
			},
			[]string{"endpoint"},
		),
		QuotaUnits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "youtube_quota_units_total",
				Help:      "Estimated quota units spent.",
			},
		),
		QuotaRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "youtube_quota_remaining_units",
				Help:      "Estimated quota units left in the current daily window.",
			},
		),
		TokenRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_token_refreshes_total",
				Help:      "Access token refresh attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		Classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "playlist_resolutions_total",
				Help:      "Resolved playlist categories, by category and source.",
			},
			[]string{"category", "source"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds, by route, method and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	m.registry.MustRegister(
		m.APICalls,
		m.APIRetries,
		m.QuotaUnits,
		m.QuotaRemaining,
		m.TokenRefreshes,
		m.Classifications,
		m.RequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) APICall(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.APICalls.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) APIRetry(endpoint string) {
	if m == nil {
		return
	}
	m.APIRetries.WithLabelValues(endpoint).Inc()
}

// Quota records spent units and the remaining estimate.
func (m *Metrics) Quota(spent, remaining int) {
	if m == nil {
		return
	}
	m.QuotaUnits.Add(float64(spent))
	m.QuotaRemaining.Set(float64(remaining))
}

func (m *Metrics) TokenRefresh(outcome string) {
	if m == nil {
		return
	}
	m.TokenRefreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Resolution(category, source string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(category, source).Inc()
}

func (m *Metrics) Request(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
