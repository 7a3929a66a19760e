package provider

import (
	"sync"
	"time"
)

// StatsCollector accumulates per-provider counters. Counters only ever
// increase; Reset is the single exception.
type StatsCollector struct {
	mu               sync.RWMutex
	requests         int64
	successes        int64
	failures         int64
	cacheHits        int64
	resourcesFetched int64
	tokensFetched    int64
	totalResponse    time.Duration
	since            time.Time
}

// StatsView is a read-only snapshot of a provider's counters with
// derived rates computed at read time.
type StatsView struct {
	Requests         int64         `json:"requests"`
	Successes        int64         `json:"successes"`
	Failures         int64         `json:"failures"`
	CacheHits        int64         `json:"cache_hits"`
	ResourcesFetched int64         `json:"resources_fetched"`
	TokensFetched    int64         `json:"tokens_fetched"`
	AvgResponseTime  time.Duration `json:"avg_response_time_ms"`
	CacheHitRate     float64       `json:"cache_hit_rate"`
	Uptime           float64       `json:"uptime"`
	Since            time.Time     `json:"since"`
	// Quota fields are populated only by providers with remote quotas.
	QuotaRemaining int        `json:"quota_remaining,omitempty"`
	QuotaResetAt   *time.Time `json:"quota_reset_at,omitempty"`
}

// NewStatsCollector creates a zeroed collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{since: time.Now()}
}

// RecordRequest records one completed backend call.
func (s *StatsCollector) RecordRequest(success bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if success {
		s.successes++
	} else {
		s.failures++
	}
	s.totalResponse += elapsed
}

// RecordCacheHit records a request answered from cache.
func (s *StatsCollector) RecordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.successes++
	s.cacheHits++
}

// RecordFetched records resources and their token estimates delivered.
func (s *StatsCollector) RecordFetched(resources int, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resourcesFetched += int64(resources)
	s.tokensFetched += int64(tokens)
}

// View returns a snapshot with derived rates.
func (s *StatsCollector) View() StatsView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := StatsView{
		Requests:         s.requests,
		Successes:        s.successes,
		Failures:         s.failures,
		CacheHits:        s.cacheHits,
		ResourcesFetched: s.resourcesFetched,
		TokensFetched:    s.tokensFetched,
		Since:            s.since,
	}
	networkCalls := s.requests - s.cacheHits
	if networkCalls > 0 {
		v.AvgResponseTime = s.totalResponse / time.Duration(networkCalls)
	}
	if s.requests > 0 {
		v.CacheHitRate = float64(s.cacheHits) / float64(s.requests)
		v.Uptime = float64(s.successes) / float64(s.requests)
	}
	return v
}

// Reset zeroes every counter and restarts the window.
func (s *StatsCollector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = 0
	s.successes = 0
	s.failures = 0
	s.cacheHits = 0
	s.resourcesFetched = 0
	s.tokensFetched = 0
	s.totalResponse = 0
	s.since = time.Now()
}
