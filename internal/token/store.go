package token

import (
	"sort"
	"sync"
	"time"
)

// StoreConfig holds ledger settings.
type StoreConfig struct {
	// MaxRecords bounds the ledger; overflow evicts oldest entries.
	MaxRecords int
	// Retention drops records older than this on Cleanup. Zero disables
	// time-based retention, which keeps tests deterministic.
	Retention time.Duration
}

// DefaultStoreConfig returns the production defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{MaxRecords: 10_000}
}

// session aggregates are maintained incrementally at insert time, so ring
// eviction of old ledger entries never corrupts them.
type session struct {
	id             string
	startTime      time.Time
	endTime        *time.Time
	messageIDs     map[string]struct{}
	totalTokens    int
	baselineTokens int
	tokensSaved    int
	costUSD        float64
	costSavingsUSD float64
}

// Store is the append-only in-memory usage ledger with session grouping.
// Safe for concurrent use.
type Store struct {
	cfg StoreConfig

	mu       sync.RWMutex
	records  []UsageRecord
	sessions map[string]*session
	evicted  int64
}

// NewStore creates an empty ledger.
func NewStore(cfg StoreConfig) *Store {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 10_000
	}
	return &Store{
		cfg:      cfg,
		sessions: make(map[string]*session),
	}
}

// SaveUsage appends a record to the ledger and, when sessionID is set,
// folds it into that session's running totals.
func (s *Store) SaveUsage(rec UsageRecord, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	if over := len(s.records) - s.cfg.MaxRecords; over > 0 {
		s.records = append(s.records[:0:0], s.records[over:]...)
		s.evicted += int64(over)
	}

	if sessionID == "" {
		return
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{
			id:         sessionID,
			startTime:  rec.Timestamp,
			messageIDs: make(map[string]struct{}),
		}
		s.sessions[sessionID] = sess
	}
	if _, tracked := sess.messageIDs[rec.MessageID]; tracked {
		return
	}
	sess.messageIDs[rec.MessageID] = struct{}{}
	sess.totalTokens += rec.TotalTokens
	sess.baselineTokens += rec.BaselineTokens
	sess.tokensSaved += rec.TokensSaved
	sess.costUSD += rec.CostUSD
	sess.costSavingsUSD += rec.CostSavingsUSD
}

// EndSession stamps a session's end time. Later saves still accumulate.
func (s *Store) EndSession(sessionID string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	sess.endTime = &at
	return true
}

// Records returns a copy of the full ledger in insertion order.
func (s *Store) Records() []UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]UsageRecord(nil), s.records...)
}

// RecordsInRange returns records with start <= Timestamp < end, optionally
// filtered by category. A zero start or end leaves that bound open.
func (s *Store) RecordsInRange(start, end time.Time, category string) []UsageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []UsageRecord
	for _, rec := range s.records {
		if !start.IsZero() && rec.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !rec.Timestamp.Before(end) {
			continue
		}
		if category != "" && rec.Category != category {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Session returns the view of one session, including its surviving ledger
// records. The second return is false for an unknown id.
func (s *Store) Session(sessionID string) (*SessionView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}

	view := &SessionView{
		SessionID:      sess.id,
		StartTime:      sess.startTime,
		EndTime:        sess.endTime,
		MessageCount:   len(sess.messageIDs),
		TotalTokens:    sess.totalTokens,
		BaselineTokens: sess.baselineTokens,
		TokensSaved:    sess.tokensSaved,
		CostUSD:        sess.costUSD,
		CostSavingsUSD: sess.costSavingsUSD,
	}
	if sess.baselineTokens > 0 {
		view.SessionEfficiency = float64(sess.tokensSaved) / float64(sess.baselineTokens) * 100
	}

	view.MessageIDs = make([]string, 0, len(sess.messageIDs))
	for id := range sess.messageIDs {
		view.MessageIDs = append(view.MessageIDs, id)
	}
	sort.Strings(view.MessageIDs)

	for _, rec := range s.records {
		if _, tracked := sess.messageIDs[rec.MessageID]; tracked {
			view.UsageRecords = append(view.UsageRecords, rec)
		}
	}
	return view, true
}

// Cleanup drops records older than the retention period. No-op when
// retention is disabled.
func (s *Store) Cleanup(now time.Time) int {
	if s.cfg.Retention <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.cfg.Retention)
	keep := 0
	for keep < len(s.records) && s.records[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return 0
	}
	s.records = append(s.records[:0:0], s.records[keep:]...)
	s.evicted += int64(keep)
	return keep
}

// Stats returns ledger occupancy.
func (s *Store) Stats() StorageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StorageStats{
		RecordCount:  len(s.records),
		SessionCount: len(s.sessions),
		Capacity:     s.cfg.MaxRecords,
		Evicted:      s.evicted,
	}
	if len(s.records) > 0 {
		oldest := s.records[0].Timestamp
		newest := s.records[len(s.records)-1].Timestamp
		stats.OldestRecord = &oldest
		stats.NewestRecord = &newest
	}
	return stats
}

// Clear drops everything.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.sessions = make(map[string]*session)
	s.evicted = 0
}
