package token

import (
	"time"
)

// Period names a time window ending now.
type Period string

const (
	PeriodLastHour  Period = "last_hour"
	PeriodLastDay   Period = "last_day"
	PeriodLastWeek  Period = "last_week"
	PeriodLastMonth Period = "last_month"
	PeriodAllTime   Period = "all_time"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case PeriodLastHour, PeriodLastDay, PeriodLastWeek, PeriodLastMonth, PeriodAllTime:
		return Period(s), true
	default:
		return "", false
	}
}

func (p Period) duration() time.Duration {
	switch p {
	case PeriodLastHour:
		return time.Hour
	case PeriodLastDay:
		return 24 * time.Hour
	case PeriodLastWeek:
		return 7 * 24 * time.Hour
	case PeriodLastMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// TimeRange is a half-open [Start, End) window.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Query selects a window: an explicit range always overrides the period.
type Query struct {
	Period   Period
	Range    *TimeRange
	Category string
}

// Metrics is the time-windowed read facade over Store and engine math.
type Metrics struct {
	store *Store
	now   func() time.Time
}

// NewMetrics creates the facade.
func NewMetrics(store *Store) *Metrics {
	return &Metrics{store: store, now: time.Now}
}

// window resolves a query to [start, end) bounds. A zero time leaves the
// bound open.
func (m *Metrics) window(q Query) (start, end time.Time) {
	if q.Range != nil {
		return q.Range.Start, q.Range.End
	}
	d := q.Period.duration()
	if d == 0 { // all_time, or unset period
		return time.Time{}, time.Time{}
	}
	end = m.now()
	return end.Add(-d), end
}

// records returns the current window plus, when wantPrevious, an equal
// window immediately before it for trend comparison.
func (m *Metrics) records(q Query, wantPrevious bool) (current, previous []UsageRecord) {
	start, end := m.window(q)
	current = m.store.RecordsInRange(start, end, q.Category)
	if !wantPrevious || start.IsZero() {
		return current, nil
	}
	width := end.Sub(start)
	previous = m.store.RecordsInRange(start.Add(-width), start, q.Category)
	if previous == nil {
		// The prior window exists even when it holds no records; only an
		// unbounded window has no predecessor.
		previous = []UsageRecord{}
	}
	return current, previous
}

// EfficiencySnapshot builds the full snapshot for a window, including a
// trend against the preceding window of equal width.
func (m *Metrics) EfficiencySnapshot(q Query) *Snapshot {
	period := q.Period
	if period == "" {
		period = PeriodAllTime
	}
	current, previous := m.records(q, true)
	return GenerateSnapshot(current, string(period), previous)
}

// SessionEfficiency returns the computed session view, or nil for an
// unknown session id.
func (m *Metrics) SessionEfficiency(sessionID string) *SessionView {
	view, ok := m.store.Session(sessionID)
	if !ok {
		return nil
	}
	return view
}

// ByCategory returns the per-category rollup for a window.
func (m *Metrics) ByCategory(q Query) []CategoryBreakdown {
	current, _ := m.records(q, false)
	out := GroupByCategory(current)
	if out == nil {
		out = []CategoryBreakdown{}
	}
	return out
}

// CostSavings is the monetary rollup for a window.
type CostSavings struct {
	Period          string             `json:"period"`
	TotalCostUSD    float64            `json:"total_cost_usd"`
	CostSavingsUSD  float64            `json:"cost_savings_usd"`
	BaselineCostUSD float64            `json:"baseline_cost_usd"`
	SavingsPct      float64            `json:"savings_percentage"`
	ByCategory      map[string]float64 `json:"by_category"`
}

// GetCostSavings computes total spend, savings, and the per-category split.
func (m *Metrics) GetCostSavings(q Query) *CostSavings {
	current, _ := m.records(q, false)
	totals := Sum(current)

	cs := &CostSavings{
		Period:          string(q.Period),
		TotalCostUSD:    totals.CostUSD,
		CostSavingsUSD:  totals.CostSavingsUSD,
		BaselineCostUSD: totals.CostUSD + totals.CostSavingsUSD,
		ByCategory:      make(map[string]float64),
	}
	if cs.BaselineCostUSD > 0 {
		cs.SavingsPct = cs.CostSavingsUSD / cs.BaselineCostUSD * 100
	}
	for _, cb := range GroupByCategory(current) {
		cs.ByCategory[cb.Category] = cb.CostSavingsUSD
	}
	return cs
}

// GetTrend compares the window against the preceding window of equal width.
func (m *Metrics) GetTrend(q Query) Trend {
	current, previous := m.records(q, true)
	return CalculateTrend(current, previous)
}

// TopResources ranks resources over a window.
func (m *Metrics) TopResources(q Query, rankBy RankBy, limit int) []ResourceRanking {
	current, _ := m.records(q, false)
	out := TopResources(current, rankBy, limit)
	if out == nil {
		out = []ResourceRanking{}
	}
	return out
}

// Summary is the flattened dashboard view of a window.
type Summary struct {
	Period          string  `json:"period"`
	MessageCount    int     `json:"message_count"`
	TotalTokens     int     `json:"total_tokens"`
	BaselineTokens  int     `json:"baseline_tokens"`
	TokensSaved     int     `json:"tokens_saved"`
	Efficiency      float64 `json:"efficiency"`
	CostUSD         float64 `json:"cost_usd"`
	CostSavingsUSD  float64 `json:"cost_savings_usd"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	UniqueResources int     `json:"unique_resources"`
	TopCategory     string  `json:"top_category,omitempty"`
}

// GetSummary flattens a window into dashboard scalars. Top category is the
// one with the most tokens saved.
func (m *Metrics) GetSummary(q Query) *Summary {
	current, _ := m.records(q, false)
	totals := Sum(current)
	cache := cacheMetrics(current)

	unique := make(map[string]struct{})
	for _, rec := range current {
		if rec.ResourceURI != "" {
			unique[rec.ResourceURI] = struct{}{}
		}
	}

	sum := &Summary{
		Period:          string(q.Period),
		MessageCount:    totals.MessageCount,
		TotalTokens:     totals.TotalTokens,
		BaselineTokens:  totals.BaselineTokens,
		TokensSaved:     totals.TokensSaved,
		Efficiency:      totals.Efficiency,
		CostUSD:         totals.CostUSD,
		CostSavingsUSD:  totals.CostSavingsUSD,
		CacheHitRate:    cache.CacheHitRate,
		UniqueResources: len(unique),
	}
	if byCat := GroupByCategory(current); len(byCat) > 0 {
		sum.TopCategory = byCat[0].Category
	}
	return sum
}

// StorageStats exposes ledger occupancy.
func (m *Metrics) StorageStats() StorageStats {
	return m.store.Stats()
}
