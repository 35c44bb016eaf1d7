package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Refresh metrics
	Refreshes        *prometheus.CounterVec
	RefreshLatency   prometheus.Histogram
	RefreshDiscarded *prometheus.CounterVec
	LastRefresh      prometheus.Gauge
	Campaigns        prometheus.Gauge

	// Insight metrics
	Insights *prometheus.GaugeVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Integration metrics
	IntegrationTransitions *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them with reg. A nil reg uses a
// fresh registry, so tests can build as many instances as they like.
func New(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_total",
				Help:      "Refresh cycles by outcome",
			},
			[]string{"outcome"},
		),
		RefreshLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Time to fetch records and rebuild insights",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RefreshDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_discarded_total",
				Help:      "Refresh results dropped instead of published",
			},
			[]string{"reason"},
		),
		LastRefresh: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_refresh_timestamp_seconds",
				Help:      "Unix time of the last accepted refresh",
			},
		),
		Campaigns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "campaigns",
				Help:      "Campaigns in the latest accepted snapshot",
			},
		),
		Insights: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "insights",
				Help:      "Insights in the latest accepted snapshot by kind",
			},
			[]string{"kind"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		IntegrationTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "integration_transitions_total",
				Help:      "Ad platform connection state changes",
			},
			[]string{"platform", "status"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		gatherer: reg,
	}
}

// Handler returns the Prometheus HTTP handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRefresh records a finished refresh cycle. outcome is "ok" or the
// failure class.
func (m *Metrics) RecordRefresh(outcome string, latency time.Duration) {
	m.Refreshes.WithLabelValues(outcome).Inc()
	m.RefreshLatency.Observe(latency.Seconds())
}

// RecordDiscard records a refresh result that was not published.
func (m *Metrics) RecordDiscard(reason string) {
	m.RefreshDiscarded.WithLabelValues(reason).Inc()
}

// UpdateSnapshot publishes the sizes of an accepted snapshot.
func (m *Metrics) UpdateSnapshot(at time.Time, campaigns int, insightsByKind map[string]int) {
	m.LastRefresh.Set(float64(at.Unix()))
	m.Campaigns.Set(float64(campaigns))
	for kind, n := range insightsByKind {
		m.Insights.WithLabelValues(kind).Set(float64(n))
	}
}

// RecordHTTPRequest records a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

// RecordIntegration records a platform moving to status.
func (m *Metrics) RecordIntegration(platform, status string) {
	m.IntegrationTransitions.WithLabelValues(platform, status).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(route string) {
	m.RateLimitHits.WithLabelValues(route).Inc()
}
