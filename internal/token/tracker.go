package token

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// BaselineStrategy names how the hypothetical no-mechanism cost is modeled.
type BaselineStrategy string

const (
	// BaselineNoJIT models stuffing every consulted resource into the
	// prompt up front instead of loading on demand.
	BaselineNoJIT BaselineStrategy = "no_jit"
	// BaselineNoCache models running without prompt caching, paying full
	// price for tokens that were actually cache reads.
	BaselineNoCache BaselineStrategy = "no_cache"
	// BaselineCustom delegates to a caller-supplied function.
	BaselineCustom BaselineStrategy = "custom"
)

// BaselineFunc computes baseline tokens for a custom strategy.
type BaselineFunc func(u RawUsage, meta *TrackMeta) int

// TrackerConfig holds tracker settings.
type TrackerConfig struct {
	Enabled                  bool
	Deduplicate              bool
	Strategy                 BaselineStrategy
	AssumedTokensPerResource int
	CacheMultiplier          float64
	Custom                   BaselineFunc
	Rates                    CostRates
}

// DefaultTrackerConfig returns the production defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Enabled:                  true,
		Deduplicate:              true,
		Strategy:                 BaselineNoJIT,
		AssumedTokensPerResource: 500,
		CacheMultiplier:          1.1,
		Rates:                    DefaultRates(),
	}
}

// Tracker turns raw usage events into UsageRecords exactly once per
// message id.
type Tracker struct {
	cfg    TrackerConfig
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTracker creates a tracker.
func NewTracker(cfg TrackerConfig, logger *zap.Logger) *Tracker {
	if cfg.AssumedTokensPerResource == 0 {
		cfg.AssumedTokensPerResource = 500
	}
	if cfg.CacheMultiplier == 0 {
		cfg.CacheMultiplier = 1.1
	}
	if cfg.Rates == (CostRates{}) {
		cfg.Rates = DefaultRates()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = BaselineNoJIT
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		cfg:    cfg,
		logger: logger.Named("token.tracker"),
		now:    time.Now,
		seen:   make(map[string]struct{}),
	}
}

// Track builds a record for one usage event. It returns nil for intentional
// no-ops: tracking disabled, or a message id already tracked while
// deduplication is on. Callers must treat nil as "not tracked", never as
// failure.
func (t *Tracker) Track(messageID string, raw RawUsage, meta *TrackMeta) *UsageRecord {
	if !t.cfg.Enabled {
		return nil
	}

	if t.cfg.Deduplicate {
		// Check-and-mark under one lock; a has-then-insert pair would race
		// under concurrent loads.
		t.mu.Lock()
		_, dup := t.seen[messageID]
		if !dup {
			t.seen[messageID] = struct{}{}
		}
		t.mu.Unlock()
		if dup {
			t.logger.Debug("duplicate message id, skipping", zap.String("message_id", messageID))
			return nil
		}
	}

	raw = raw.clamp()
	baseline := t.baseline(raw, meta)
	total := raw.Total()

	saved := baseline - total
	if saved < 0 {
		saved = 0
	}

	efficiency := 0.0
	if baseline > 0 {
		efficiency = float64(saved) / float64(baseline) * 100
	}

	cost := t.cfg.Rates.Cost(raw)
	baselineCost := t.baselineCost(raw, baseline)
	costSavings := baselineCost - cost
	if costSavings < 0 {
		costSavings = 0
	}

	rec := &UsageRecord{
		MessageID:           messageID,
		Timestamp:           t.now(),
		InputTokens:         raw.InputTokens,
		OutputTokens:        raw.OutputTokens,
		CacheReadTokens:     raw.CacheReadTokens,
		CacheCreationTokens: raw.CacheCreationTokens,
		TotalTokens:         total,
		BaselineTokens:      baseline,
		TokensSaved:         saved,
		EfficiencyPct:       efficiency,
		CostUSD:             cost,
		CostSavingsUSD:      costSavings,
	}
	if meta != nil {
		rec.Category = meta.Category
		rec.ResourceURI = meta.ResourceURI
	}
	return rec
}

// baseline computes the hypothetical token cost without the mechanism
// under measurement.
func (t *Tracker) baseline(u RawUsage, meta *TrackMeta) int {
	switch t.cfg.Strategy {
	case BaselineNoCache:
		return u.InputTokens + u.OutputTokens + int(float64(u.CacheReadTokens)*t.cfg.CacheMultiplier)
	case BaselineCustom:
		if t.cfg.Custom != nil {
			return t.cfg.Custom(u, meta)
		}
		return u.Total()
	default: // BaselineNoJIT
		resourceCount := 0
		if meta != nil {
			resourceCount = meta.ResourceCount
		}
		return u.InputTokens + u.OutputTokens + resourceCount*t.cfg.AssumedTokensPerResource
	}
}

// baselineCost prices the baseline: the output share at the output rate,
// everything else at the full input rate, since the mechanisms being
// measured (caching, just-in-time loading) both save input-side tokens.
func (t *Tracker) baselineCost(u RawUsage, baseline int) float64 {
	const million = 1_000_000
	inputSide := baseline - u.OutputTokens
	if inputSide < 0 {
		inputSide = 0
	}
	return float64(inputSide)/million*t.cfg.Rates.InputPerMillion +
		float64(u.OutputTokens)/million*t.cfg.Rates.OutputPerMillion
}

// Tracked reports how many distinct message ids have been tracked.
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}

// Reset forgets all tracked message ids.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]struct{})
}
