package token

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	for _, valid := range []string{"last_hour", "last_day", "last_week", "last_month", "all_time"} {
		p, ok := ParsePeriod(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, Period(valid), p)
	}

	_, ok := ParsePeriod("fortnight")
	assert.False(t, ok)
}

// fixedMetrics returns a metrics facade with a pinned clock and a store
// seeded with one record per hour, newest one hour ago.
func fixedMetrics(t *testing.T, hours int) (*Metrics, time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := NewStore(DefaultStoreConfig())
	for i := 1; i <= hours; i++ {
		rec := UsageRecord{
			MessageID:      fmt.Sprintf("m%d", i),
			Timestamp:      now.Add(-time.Duration(i) * time.Hour),
			TotalTokens:    100,
			BaselineTokens: 400,
			TokensSaved:    300,
			Category:       "skills",
			ResourceURI:    "skills/api-design",
			CostUSD:        0.01,
			CostSavingsUSD: 0.03,
		}
		store.SaveUsage(rec, "s1")
	}
	m := NewMetrics(store)
	m.now = func() time.Time { return now }
	return m, now
}

func TestMetricsWindowing(t *testing.T) {
	m, now := fixedMetrics(t, 30)

	t.Run("period selects window ending now", func(t *testing.T) {
		sum := m.GetSummary(Query{Period: PeriodLastDay})
		// Records 1h..23h old fall inside [now-24h, now).
		assert.Equal(t, 23, sum.MessageCount)
	})

	t.Run("all time sees everything", func(t *testing.T) {
		sum := m.GetSummary(Query{Period: PeriodAllTime})
		assert.Equal(t, 30, sum.MessageCount)
	})

	t.Run("explicit range overrides period", func(t *testing.T) {
		sum := m.GetSummary(Query{
			Period: PeriodAllTime,
			Range: &TimeRange{
				Start: now.Add(-3 * time.Hour),
				End:   now.Add(-1 * time.Hour),
			},
		})
		// Half-open window: the 1h-old record sits on the end bound.
		assert.Equal(t, 2, sum.MessageCount)
	})

	t.Run("category filter", func(t *testing.T) {
		sum := m.GetSummary(Query{Period: PeriodAllTime, Category: "agents"})
		assert.Equal(t, 0, sum.MessageCount)
	})
}

func TestMetricsSummary(t *testing.T) {
	m, _ := fixedMetrics(t, 5)
	sum := m.GetSummary(Query{Period: PeriodAllTime})

	assert.Equal(t, 5, sum.MessageCount)
	assert.Equal(t, 500, sum.TotalTokens)
	assert.Equal(t, 2000, sum.BaselineTokens)
	assert.InDelta(t, 75.0, sum.Efficiency, 0.001)
	assert.Equal(t, 1, sum.UniqueResources)
	assert.Equal(t, "skills", sum.TopCategory)
}

func TestMetricsCostSavings(t *testing.T) {
	m, _ := fixedMetrics(t, 4)
	cs := m.GetCostSavings(Query{Period: PeriodAllTime})

	assert.InDelta(t, 0.04, cs.TotalCostUSD, 0.0001)
	assert.InDelta(t, 0.12, cs.CostSavingsUSD, 0.0001)
	assert.InDelta(t, 0.16, cs.BaselineCostUSD, 0.0001)
	assert.InDelta(t, 75.0, cs.SavingsPct, 0.001)
	assert.InDelta(t, 0.12, cs.ByCategory["skills"], 0.0001)
}

func TestMetricsTrendUsesPrecedingWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := NewStore(DefaultStoreConfig())
	// Efficient record in the current hour, inefficient one the hour before.
	store.SaveUsage(UsageRecord{
		MessageID: "cur", Timestamp: now.Add(-30 * time.Minute),
		TotalTokens: 100, BaselineTokens: 1000, TokensSaved: 900,
	}, "")
	store.SaveUsage(UsageRecord{
		MessageID: "prev", Timestamp: now.Add(-90 * time.Minute),
		TotalTokens: 900, BaselineTokens: 1000, TokensSaved: 100,
	}, "")
	m := NewMetrics(store)
	m.now = func() time.Time { return now }

	trend := m.GetTrend(Query{Period: PeriodLastHour})
	assert.Equal(t, TrendImproving, trend.Direction)
	assert.InDelta(t, 80.0, trend.EfficiencyDelta, 0.001)
}

func TestMetricsTrendAgainstEmptyPriorWindow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	store := NewStore(DefaultStoreConfig())
	store.SaveUsage(UsageRecord{
		MessageID: "cur", Timestamp: now.Add(-30 * time.Minute),
		TotalTokens: 100, BaselineTokens: 1000, TokensSaved: 900,
	}, "")
	m := NewMetrics(store)
	m.now = func() time.Time { return now }

	// An empty preceding hour is still a window: deltas read against zero.
	snap := m.EfficiencySnapshot(Query{Period: PeriodLastHour})
	require.NotNil(t, snap.Trend)
	assert.Equal(t, TrendImproving, snap.Trend.Direction)
	assert.Equal(t, 900, snap.Trend.TokensSavedDelta)

	// Only the unbounded window has no predecessor.
	snap = m.EfficiencySnapshot(Query{Period: PeriodAllTime})
	assert.Nil(t, snap.Trend)
}

func TestMetricsSessionEfficiency(t *testing.T) {
	m, _ := fixedMetrics(t, 3)

	t.Run("unknown session is nil", func(t *testing.T) {
		assert.Nil(t, m.SessionEfficiency("missing"))
	})

	t.Run("known session", func(t *testing.T) {
		view := m.SessionEfficiency("s1")
		require.NotNil(t, view)
		assert.Equal(t, 3, view.MessageCount)
		assert.InDelta(t, 75.0, view.SessionEfficiency, 0.001)
	})
}

func TestMetricsEfficiencySnapshot(t *testing.T) {
	m, _ := fixedMetrics(t, 2)

	snap := m.EfficiencySnapshot(Query{Period: PeriodLastDay})
	require.NotNil(t, snap)
	assert.Equal(t, "last_day", snap.Period)
	assert.Equal(t, 2, snap.Overall.MessageCount)
	require.Len(t, snap.ByCategory, 1)
	assert.Equal(t, "skills", snap.ByCategory[0].Category)
	assert.NotNil(t, snap.Trend)
}

func TestMetricsTopResourcesNeverNil(t *testing.T) {
	m := NewMetrics(NewStore(DefaultStoreConfig()))
	out := m.TopResources(Query{Period: PeriodAllTime}, RankByTokens, 10)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
