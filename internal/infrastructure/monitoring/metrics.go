package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Provider metrics
	ProviderFetches  *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec

	// Token accounting metrics
	EventsTracked  prometheus.Counter
	EventsDeduped  prometheus.Counter
	TokensTracked  prometheus.Counter
	TokensSaved    prometheus.Counter
	RecordsStored  prometheus.Gauge
	SessionsActive prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates the metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "federation_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "federation_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ProviderFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "federation_provider_fetches_total",
				Help: "Total provider fetch operations by outcome",
			},
			[]string{"provider", "outcome"},
		),
		ProviderDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "federation_provider_fetch_duration_seconds",
				Help:    "Provider fetch duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		EventsTracked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "federation_token_events_tracked_total",
				Help: "Total usage events tracked",
			},
		),
		EventsDeduped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "federation_token_events_deduplicated_total",
				Help: "Usage events dropped as duplicate message ids",
			},
		),
		TokensTracked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "federation_tokens_tracked_total",
				Help: "Total tokens across tracked events",
			},
		),
		TokensSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "federation_tokens_saved_total",
				Help: "Total tokens saved versus baseline",
			},
		),
		RecordsStored: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "federation_usage_records_stored",
				Help: "Usage records currently in the ledger",
			},
		),
		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "federation_sessions_active",
				Help: "Sessions currently tracked",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "federation_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordFetch records one provider fetch outcome.
func (m *Metrics) RecordFetch(provider, outcome string, duration time.Duration) {
	m.ProviderFetches.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTracked records one accepted usage event.
func (m *Metrics) RecordTracked(totalTokens, tokensSaved int) {
	m.EventsTracked.Inc()
	m.TokensTracked.Add(float64(totalTokens))
	m.TokensSaved.Add(float64(tokensSaved))
}

// RecordDuplicate records a usage event dropped by deduplication.
func (m *Metrics) RecordDuplicate() {
	m.EventsDeduped.Inc()
}

// SetStorage updates ledger occupancy gauges.
func (m *Metrics) SetStorage(records, sessions int) {
	m.RecordsStored.Set(float64(records))
	m.SessionsActive.Set(float64(sessions))
}
