package token

import (
	"sort"
	"time"
)

// The engine is pure math over caller-supplied record slices. It has no
// store dependency so callers can compose it with any window of records.

// uncategorized is where records without a category land when grouping.
const uncategorized = "uncategorized"

// cacheSavingsMultiplier approximates how much of each cache-read token
// would otherwise have been paid at full input price.
const cacheSavingsMultiplier = 0.9

// lowEfficiencyThreshold marks resources that need optimization attention.
const lowEfficiencyThreshold = 20.0

// CalculateEfficiency returns the share of baseline avoided, in percent.
// Zero when the baseline is non-positive or nothing was saved.
func CalculateEfficiency(actual, baseline int) float64 {
	if baseline <= 0 || actual >= baseline {
		return 0
	}
	return float64(baseline-actual) / float64(baseline) * 100
}

// Totals is the overall rollup of a record slice.
type Totals struct {
	MessageCount        int     `json:"message_count"`
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	TotalTokens         int     `json:"total_tokens"`
	BaselineTokens      int     `json:"baseline_tokens"`
	TokensSaved         int     `json:"tokens_saved"`
	Efficiency          float64 `json:"efficiency"`
	CostUSD             float64 `json:"cost_usd"`
	CostSavingsUSD      float64 `json:"cost_savings_usd"`
}

// Sum rolls up a record slice. An empty slice yields the zero value.
func Sum(records []UsageRecord) Totals {
	var t Totals
	for _, rec := range records {
		t.MessageCount++
		t.InputTokens += rec.InputTokens
		t.OutputTokens += rec.OutputTokens
		t.CacheReadTokens += rec.CacheReadTokens
		t.CacheCreationTokens += rec.CacheCreationTokens
		t.TotalTokens += rec.TotalTokens
		t.BaselineTokens += rec.BaselineTokens
		t.TokensSaved += rec.TokensSaved
		t.CostUSD += rec.CostUSD
		t.CostSavingsUSD += rec.CostSavingsUSD
	}
	t.Efficiency = CalculateEfficiency(t.TotalTokens, t.BaselineTokens)
	return t
}

// CategoryBreakdown is the per-category rollup.
type CategoryBreakdown struct {
	Category string `json:"category"`
	Totals
	TopResources []ResourceRanking `json:"top_resources,omitempty"`
}

// GroupByCategory buckets records per category (missing goes to
// "uncategorized") and rolls each bucket up. Output is sorted by tokens
// saved, descending.
func GroupByCategory(records []UsageRecord) []CategoryBreakdown {
	buckets := make(map[string][]UsageRecord)
	for _, rec := range records {
		cat := rec.Category
		if cat == "" {
			cat = uncategorized
		}
		buckets[cat] = append(buckets[cat], rec)
	}

	out := make([]CategoryBreakdown, 0, len(buckets))
	for cat, recs := range buckets {
		out = append(out, CategoryBreakdown{
			Category:     cat,
			Totals:       Sum(recs),
			TopResources: TopResources(recs, RankByTokens, 3),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TokensSaved != out[j].TokensSaved {
			return out[i].TokensSaved > out[j].TokensSaved
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// RankBy selects the ranking metric for TopResources.
type RankBy string

const (
	RankByEfficiency RankBy = "efficiency"
	RankBySavings    RankBy = "savings"
	RankByTokens     RankBy = "tokens"
)

// ResourceRanking is one merged entry in a resource ranking.
type ResourceRanking struct {
	ResourceURI    string  `json:"resource_uri"`
	Category       string  `json:"category,omitempty"`
	LoadCount      int     `json:"load_count"`
	TotalTokens    int     `json:"total_tokens"`
	BaselineTokens int     `json:"baseline_tokens"`
	TokensSaved    int     `json:"tokens_saved"`
	Efficiency     float64 `json:"efficiency"`
	CostSavingsUSD float64 `json:"cost_savings_usd"`
}

// TopResources merges multiple loads of the same resource URI into one
// entry, then ranks descending by the chosen metric and truncates. The
// merged efficiency is recomputed from the summed token counts, not
// averaged per load, so many small loads carry no extra weight. Records
// without a resource URI are excluded.
func TopResources(records []UsageRecord, rankBy RankBy, limit int) []ResourceRanking {
	merged := make(map[string]*ResourceRanking)
	var order []string
	for _, rec := range records {
		if rec.ResourceURI == "" {
			continue
		}
		entry, ok := merged[rec.ResourceURI]
		if !ok {
			entry = &ResourceRanking{ResourceURI: rec.ResourceURI, Category: rec.Category}
			merged[rec.ResourceURI] = entry
			order = append(order, rec.ResourceURI)
		}
		entry.LoadCount++
		entry.TotalTokens += rec.TotalTokens
		entry.BaselineTokens += rec.BaselineTokens
		entry.TokensSaved += rec.TokensSaved
		entry.CostSavingsUSD += rec.CostSavingsUSD
	}

	out := make([]ResourceRanking, 0, len(order))
	for _, uri := range order {
		entry := merged[uri]
		entry.Efficiency = CalculateEfficiency(entry.TotalTokens, entry.BaselineTokens)
		out = append(out, *entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch rankBy {
		case RankBySavings:
			return out[i].TokensSaved > out[j].TokensSaved
		case RankByTokens:
			return out[i].TotalTokens > out[j].TotalTokens
		default:
			return out[i].Efficiency > out[j].Efficiency
		}
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TrendDirection classifies a trend.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Trend compares the current window against the previous one.
type Trend struct {
	EfficiencyDelta  float64        `json:"efficiency_delta"`
	TokensSavedDelta int            `json:"tokens_saved_delta"`
	CostSavingsDelta float64        `json:"cost_savings_delta"`
	Direction        TrendDirection `json:"direction"`
}

// CalculateTrend computes window-over-window deltas. The direction has a
// one-point stability band: only efficiency moves beyond ±1 point count
// as improving or declining.
func CalculateTrend(current, previous []UsageRecord) Trend {
	cur := Sum(current)
	prev := Sum(previous)

	t := Trend{
		EfficiencyDelta:  cur.Efficiency - prev.Efficiency,
		TokensSavedDelta: cur.TokensSaved - prev.TokensSaved,
		CostSavingsDelta: cur.CostSavingsUSD - prev.CostSavingsUSD,
	}
	switch {
	case t.EfficiencyDelta > 1:
		t.Direction = TrendImproving
	case t.EfficiencyDelta < -1:
		t.Direction = TrendDeclining
	default:
		t.Direction = TrendStable
	}
	return t
}

// CacheMetrics summarizes prompt-cache behavior over a window. A "hit" is
// any record with cache-read tokens.
type CacheMetrics struct {
	CacheHits        int     `json:"cache_hits"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	CacheReadTokens  int     `json:"cache_read_tokens"`
	CacheTokensSaved int     `json:"cache_tokens_saved"`
}

func cacheMetrics(records []UsageRecord) CacheMetrics {
	var m CacheMetrics
	for _, rec := range records {
		if rec.CacheReadTokens > 0 {
			m.CacheHits++
			m.CacheReadTokens += rec.CacheReadTokens
		}
	}
	if len(records) > 0 {
		m.CacheHitRate = float64(m.CacheHits) / float64(len(records))
	}
	m.CacheTokensSaved = int(float64(m.CacheReadTokens) * cacheSavingsMultiplier)
	return m
}

// Snapshot is a read-only point-in-time aggregate over a window. Never
// persisted.
type Snapshot struct {
	Period            string              `json:"period"`
	GeneratedAt       time.Time           `json:"generated_at"`
	Overall           Totals              `json:"overall"`
	ByCategory        []CategoryBreakdown `json:"by_category"`
	Cache             CacheMetrics        `json:"cache"`
	Trend             *Trend              `json:"trend,omitempty"`
	TopPerformers     []ResourceRanking   `json:"top_performers"`
	NeedsOptimization []ResourceRanking   `json:"needs_optimization"`
}

// GenerateSnapshot assembles the full snapshot for a window. An empty
// record slice yields zero totals and empty lists, never an error.
func GenerateSnapshot(records []UsageRecord, period string, previous []UsageRecord) *Snapshot {
	snap := &Snapshot{
		Period:        period,
		GeneratedAt:   time.Now(),
		Overall:       Sum(records),
		ByCategory:    GroupByCategory(records),
		Cache:         cacheMetrics(records),
		TopPerformers: TopResources(records, RankByEfficiency, 5),
	}
	if snap.ByCategory == nil {
		snap.ByCategory = []CategoryBreakdown{}
	}
	if snap.TopPerformers == nil {
		snap.TopPerformers = []ResourceRanking{}
	}

	if previous != nil {
		trend := CalculateTrend(records, previous)
		snap.Trend = &trend
	}

	// Resources below the threshold, worst first.
	all := TopResources(records, RankByEfficiency, 0)
	needs := make([]ResourceRanking, 0)
	for _, r := range all {
		if r.Efficiency < lowEfficiencyThreshold {
			needs = append(needs, r)
		}
	}
	sort.SliceStable(needs, func(i, j int) bool {
		return needs[i].Efficiency < needs[j].Efficiency
	})
	snap.NeedsOptimization = needs

	return snap
}
