package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderSnapshot is one provider's state as the collector sees it.
type ProviderSnapshot struct {
	Name      string
	Enabled   bool
	CacheHits int64
}

// RegistryCollector exports registry state on scrape: the providers keep
// their own cumulative counters, so these are read as const metrics
// instead of being pushed through the Metrics struct.
type RegistryCollector struct {
	snapshot func() []ProviderSnapshot

	cacheHits *prometheus.Desc
	enabled   *prometheus.Desc
}

// NewRegistryCollector creates a collector over a registry snapshot func.
func NewRegistryCollector(snapshot func() []ProviderSnapshot) *RegistryCollector {
	return &RegistryCollector{
		snapshot: snapshot,
		cacheHits: prometheus.NewDesc(
			"federation_provider_cache_hits_total",
			"Provider requests answered from cache",
			[]string{"provider"}, nil,
		),
		enabled: prometheus.NewDesc(
			"federation_providers_enabled",
			"Number of providers currently in rotation",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheHits
	ch <- c.enabled
}

// Collect implements prometheus.Collector.
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	var enabled float64
	for _, s := range c.snapshot() {
		if s.Enabled {
			enabled++
		}
		ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(s.CacheHits), s.Name)
	}
	ch <- prometheus.MustNewConstMetric(c.enabled, prometheus.GaugeValue, enabled)
}
