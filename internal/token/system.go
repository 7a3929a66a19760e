package token

import (
	"go.uber.org/zap"
)

// System bundles the token accounting components. Build one at process
// start and inject it wherever resource loads occur; tear it down at
// shutdown. Replaces any implicit process-wide tracking state.
type System struct {
	Tracker *Tracker
	Store   *Store
	Metrics *Metrics
}

// SystemConfig holds construction settings for the whole layer.
type SystemConfig struct {
	Tracker TrackerConfig
	Store   StoreConfig
}

// DefaultSystemConfig returns production defaults.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		Tracker: DefaultTrackerConfig(),
		Store:   DefaultStoreConfig(),
	}
}

// NewSystem wires tracker, store, and metrics facade together.
func NewSystem(cfg SystemConfig, logger *zap.Logger) *System {
	store := NewStore(cfg.Store)
	return &System{
		Tracker: NewTracker(cfg.Tracker, logger),
		Store:   store,
		Metrics: NewMetrics(store),
	}
}

// Track records one usage event and persists the record when tracking
// produced one. Returns the record, or nil for intentional no-ops.
func (s *System) Track(messageID string, raw RawUsage, meta *TrackMeta, sessionID string) *UsageRecord {
	rec := s.Tracker.Track(messageID, raw, meta)
	if rec == nil {
		return nil
	}
	s.Store.SaveUsage(*rec, sessionID)
	return rec
}

// Close flushes and clears all accounting state.
func (s *System) Close() {
	s.Store.Clear()
	s.Tracker.Reset()
}
