package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsCollector(t *testing.T) {
	s := NewStatsCollector()

	s.RecordRequest(true, 100*time.Millisecond)
	s.RecordRequest(false, 300*time.Millisecond)
	s.RecordCacheHit()
	s.RecordFetched(2, 900)

	v := s.View()
	assert.Equal(t, int64(3), v.Requests)
	assert.Equal(t, int64(2), v.Successes)
	assert.Equal(t, int64(1), v.Failures)
	assert.Equal(t, int64(1), v.CacheHits)
	assert.Equal(t, int64(2), v.ResourcesFetched)
	assert.Equal(t, int64(900), v.TokensFetched)

	// Average covers network calls only, never cache hits.
	assert.Equal(t, 200*time.Millisecond, v.AvgResponseTime)
	assert.InDelta(t, 1.0/3.0, v.CacheHitRate, 0.001)
	assert.InDelta(t, 2.0/3.0, v.Uptime, 0.001)
}

func TestStatsCollectorReset(t *testing.T) {
	s := NewStatsCollector()
	s.RecordRequest(true, time.Millisecond)
	before := s.View().Since

	time.Sleep(time.Millisecond)
	s.Reset()

	v := s.View()
	assert.Equal(t, int64(0), v.Requests)
	assert.Equal(t, time.Duration(0), v.AvgResponseTime)
	assert.True(t, v.Since.After(before))
}

func TestStatsCollectorEmptyView(t *testing.T) {
	v := NewStatsCollector().View()
	assert.Equal(t, 0.0, v.CacheHitRate)
	assert.Equal(t, 0.0, v.Uptime)
}
