// Package registry composes provider variants behind one lookup surface.
//
// Providers are consulted in priority order (lower first). Lookup misses
// and transport failures fall through to the next provider; rate-limit and
// credential failures skip that provider for the call. A periodic health
// loop probes every provider concurrently and auto-disables any that fails
// too many consecutive checks, emitting events so observers can react.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orchestr8/federation/internal/provider"
)

// Config holds registry settings.
type Config struct {
	HealthCheckInterval    time.Duration
	MaxConsecutiveFailures int
	AutoDisableUnhealthy   bool
	ProviderTimeout        time.Duration
}

func (c *Config) applyDefaults() {
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 60 * time.Second
	}
	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = 3
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = 30 * time.Second
	}
}

// entry pairs a provider with registry-owned state.
type entry struct {
	p       provider.Provider
	enabled bool
	health  provider.Health
}

// Registry owns an ordered set of providers.
type Registry struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	entries []*entry

	events *eventBus

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates an empty registry.
func New(cfg Config, logger *zap.Logger) *Registry {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:    cfg,
		logger: logger.Named("registry"),
		events: newEventBus(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Register adds a provider and keeps the priority order.
func (r *Registry) Register(p provider.Provider) error {
	if p.Name() == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.p.Name() == p.Name() {
			return fmt.Errorf("provider %s already registered", p.Name())
		}
	}
	r.entries = append(r.entries, &entry{p: p, enabled: true})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].p.Priority() < r.entries[j].p.Priority()
	})
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.p.Name() == name {
			return e.p, true
		}
	}
	return nil, false
}

// ProviderInfo is the external view of a registered provider.
type ProviderInfo struct {
	Name     string             `json:"name"`
	Priority int                `json:"priority"`
	Enabled  bool               `json:"enabled"`
	Health   provider.Health    `json:"health"`
	Stats    provider.StatsView `json:"stats"`
}

// List returns every registered provider in priority order.
func (r *Registry) List() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]ProviderInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, ProviderInfo{
			Name:     e.p.Name(),
			Priority: e.p.Priority(),
			Enabled:  e.enabled,
			Health:   e.health,
			Stats:    e.p.Stats(),
		})
	}
	return infos
}

// Health returns the last recorded health for a provider.
func (r *Registry) Health(name string) (provider.Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.p.Name() == name {
			return e.health, true
		}
	}
	return provider.Health{}, false
}

// Enable puts a provider back into rotation and clears its failure streak.
func (r *Registry) Enable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.p.Name() == name {
			if !e.enabled {
				e.enabled = true
				e.health.ConsecutiveFailures = 0
				r.events.publish(Event{Type: EventProviderEnabled, Provider: name, At: time.Now()})
			}
			return true
		}
	}
	return false
}

// Disable removes a provider from rotation without unregistering it.
func (r *Registry) Disable(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.p.Name() == name {
			if e.enabled {
				e.enabled = false
				r.events.publish(Event{Type: EventProviderDisabled, Provider: name, At: time.Now()})
			}
			return true
		}
	}
	return false
}

// enabledProviders snapshots the rotation in priority order.
func (r *Registry) enabledProviders() []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]provider.Provider, 0, len(r.entries))
	for _, e := range r.entries {
		if e.enabled {
			out = append(out, e.p)
		}
	}
	return out
}

// FetchResourceAny tries providers in priority order and returns the first
// success. NotFound and Unavailable fall through; RateLimited and
// Authentication failures are recorded and skipped. Exhausting the rotation
// yields an aggregate Unavailable error enumerating each provider's reason.
func (r *Registry) FetchResourceAny(ctx context.Context, id string, cat provider.Category) (*provider.Resource, error) {
	rotation := r.enabledProviders()
	if len(rotation) == 0 {
		return nil, provider.Unavailable("registry", "no providers enabled", nil)
	}

	var reasons []string
	for _, p := range rotation {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
		res, err := p.FetchResource(callCtx, id, cat)
		cancel()
		if err == nil {
			return res, nil
		}

		kind := provider.KindOf(err)
		reasons = append(reasons, fmt.Sprintf("%s: %s", p.Name(), err))
		r.logger.Debug("provider miss",
			zap.String("provider", p.Name()),
			zap.String("id", id),
			zap.String("kind", string(kind)),
		)
	}

	return nil, provider.Unavailable("registry",
		fmt.Sprintf("all providers failed for %s/%s: %s", cat, id, strings.Join(reasons, "; ")), nil)
}

// SearchAll fans out to every enabled provider concurrently, merges the
// scored results, and deduplicates identical ids keeping the higher score.
// A provider that exceeds the per-provider timeout contributes nothing.
func (r *Registry) SearchAll(ctx context.Context, q provider.SearchQuery) (*provider.SearchResponse, error) {
	rotation := r.enabledProviders()

	var (
		mu        sync.Mutex
		responses []*provider.SearchResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range rotation {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, r.cfg.ProviderTimeout)
			defer cancel()

			resp, err := p.Search(callCtx, q)
			if err != nil {
				// A failing provider must not sink the whole fan-out.
				r.logger.Warn("search failed",
					zap.String("provider", p.Name()),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			responses = append(responses, resp)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeResponses(q, responses), nil
}

func mergeResponses(q provider.SearchQuery, responses []*provider.SearchResponse) *provider.SearchResponse {
	best := make(map[string]provider.SearchResult)
	var order []string
	for _, resp := range responses {
		for _, res := range resp.Results {
			prev, seen := best[res.ID]
			if !seen {
				order = append(order, res.ID)
			}
			if !seen || res.Score > prev.Score {
				best[res.ID] = res
			}
		}
	}

	merged := make([]provider.SearchResult, 0, len(order))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	total := len(merged)
	if q.Limit > 0 && len(merged) > q.Limit {
		merged = merged[:q.Limit]
	}

	return &provider.SearchResponse{
		Provider:   "registry",
		Query:      q.Query,
		Results:    merged,
		TotalFound: total,
		SearchedAt: time.Now(),
	}
}

// Initialize calls Initialize on every provider, disabling those that fail.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.RLock()
	entries := append([]*entry(nil), r.entries...)
	r.mu.RUnlock()

	for _, e := range entries {
		if err := e.p.Initialize(ctx); err != nil {
			r.logger.Warn("provider initialization failed, disabling",
				zap.String("provider", e.p.Name()),
				zap.Error(err),
			)
			r.Disable(e.p.Name())
		}
	}
	return nil
}

// Shutdown stops the health loop and shuts down every provider.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.Stop()

	r.mu.RLock()
	entries := append([]*entry(nil), r.entries...)
	r.mu.RUnlock()

	var firstErr error
	for _, e := range entries {
		if err := e.p.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.events.close()
	return firstErr
}
