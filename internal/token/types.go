package token

import (
	"time"
)

// RawUsage carries the token counters reported for one model interaction.
// Missing counters are zero; the tracker never rejects malformed input.
type RawUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheReadTokens     int `json:"cache_read_tokens"`
	CacheCreationTokens int `json:"cache_creation_tokens"`
}

// clamp zeroes negative counters so arithmetic downstream stays sane.
func (r RawUsage) clamp() RawUsage {
	if r.InputTokens < 0 {
		r.InputTokens = 0
	}
	if r.OutputTokens < 0 {
		r.OutputTokens = 0
	}
	if r.CacheReadTokens < 0 {
		r.CacheReadTokens = 0
	}
	if r.CacheCreationTokens < 0 {
		r.CacheCreationTokens = 0
	}
	return r
}

// Total sums the four token types.
func (r RawUsage) Total() int {
	return r.InputTokens + r.OutputTokens + r.CacheReadTokens + r.CacheCreationTokens
}

// TrackMeta is optional context attached to a tracked event.
type TrackMeta struct {
	Category      string `json:"category,omitempty"`
	ResourceURI   string `json:"resource_uri,omitempty"`
	ResourceCount int    `json:"resource_count,omitempty"`
}

// UsageRecord is one immutable ledger entry. Created at most once per
// message id when deduplication is on.
type UsageRecord struct {
	MessageID           string    `json:"message_id"`
	Timestamp           time.Time `json:"timestamp"`
	InputTokens         int       `json:"input_tokens"`
	OutputTokens        int       `json:"output_tokens"`
	CacheReadTokens     int       `json:"cache_read_tokens"`
	CacheCreationTokens int       `json:"cache_creation_tokens"`
	TotalTokens         int       `json:"total_tokens"`
	BaselineTokens      int       `json:"baseline_tokens"`
	TokensSaved         int       `json:"tokens_saved"`
	EfficiencyPct       float64   `json:"efficiency_percentage"`
	CostUSD             float64   `json:"cost_usd"`
	CostSavingsUSD      float64   `json:"cost_savings_usd"`
	Category            string    `json:"category,omitempty"`
	ResourceURI         string    `json:"resource_uri,omitempty"`
}

// CostRates prices the four token types in USD per million tokens.
type CostRates struct {
	InputPerMillion         float64 `json:"input_per_million"`
	OutputPerMillion        float64 `json:"output_per_million"`
	CacheCreationPerMillion float64 `json:"cache_creation_per_million"`
	CacheReadPerMillion     float64 `json:"cache_read_per_million"`
}

// DefaultRates returns current list pricing for a mid-tier model.
func DefaultRates() CostRates {
	return CostRates{
		InputPerMillion:         3.00,
		OutputPerMillion:        15.00,
		CacheCreationPerMillion: 3.75,
		CacheReadPerMillion:     0.30,
	}
}

// Cost prices a usage event.
func (c CostRates) Cost(u RawUsage) float64 {
	const million = 1_000_000
	return float64(u.InputTokens)/million*c.InputPerMillion +
		float64(u.OutputTokens)/million*c.OutputPerMillion +
		float64(u.CacheCreationTokens)/million*c.CacheCreationPerMillion +
		float64(u.CacheReadTokens)/million*c.CacheReadPerMillion
}

// SessionView is the externally visible shape of a session. The internal
// tracked-id set is serialized as a plain sorted array.
type SessionView struct {
	SessionID         string        `json:"session_id"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	MessageIDs        []string      `json:"message_ids"`
	MessageCount      int           `json:"message_count"`
	TotalTokens       int           `json:"total_tokens"`
	BaselineTokens    int           `json:"baseline_tokens"`
	TokensSaved       int           `json:"tokens_saved"`
	CostUSD           float64       `json:"cost_usd"`
	CostSavingsUSD    float64       `json:"cost_savings_usd"`
	SessionEfficiency float64       `json:"session_efficiency"`
	UsageRecords      []UsageRecord `json:"usage_records"`
}

// StorageStats describes the ledger's current occupancy.
type StorageStats struct {
	RecordCount  int        `json:"record_count"`
	SessionCount int        `json:"session_count"`
	Capacity     int        `json:"capacity"`
	Evicted      int64      `json:"evicted"`
	OldestRecord *time.Time `json:"oldest_record,omitempty"`
	NewestRecord *time.Time `json:"newest_record,omitempty"`
}
