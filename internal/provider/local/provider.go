// Package local implements the filesystem resource provider.
//
// Resources live under a root directory laid out as {category}/{id}.md with
// YAML front matter. The local provider is priority 0: most trusted and
// cheapest, so the registry consults it before any remote backend.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/orchestr8/federation/internal/provider"
)

const (
	defaultContentTTL = 4 * time.Hour
	defaultIndexTTL   = 24 * time.Hour
)

// Config holds local provider settings.
type Config struct {
	Root       string
	ContentTTL time.Duration
	IndexTTL   time.Duration
}

// Provider walks a filesystem subtree and serves resources from it.
type Provider struct {
	root   string
	cache  *provider.Cache
	stats  *provider.StatsCollector
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
}

// New creates a local provider rooted at cfg.Root.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.ContentTTL == 0 {
		cfg.ContentTTL = defaultContentTTL
	}
	if cfg.IndexTTL == 0 {
		cfg.IndexTTL = defaultIndexTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		root:   cfg.Root,
		cache:  provider.NewCache(cfg.ContentTTL, cfg.IndexTTL),
		stats:  provider.NewStatsCollector(),
		logger: logger.Named("provider.local"),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return "local" }

// Priority implements provider.Provider.
func (p *Provider) Priority() int { return 0 }

// Initialize verifies the root directory exists.
func (p *Provider) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	info, err := os.Stat(p.root)
	if err != nil {
		return provider.Unavailable(p.Name(), fmt.Sprintf("root %s not accessible", p.root), err)
	}
	if !info.IsDir() {
		return provider.Unavailable(p.Name(), fmt.Sprintf("root %s is not a directory", p.root), nil)
	}
	p.initialized = true
	return nil
}

// Shutdown drops the cache.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.cache.Clear()
	return nil
}

// FetchIndex walks the subtree and builds the resource listing.
func (p *Provider) FetchIndex(ctx context.Context) (*provider.Index, error) {
	if idx, ok := p.cache.GetIndex(); ok {
		p.stats.RecordCacheHit()
		return idx, nil
	}

	start := time.Now()
	idx, err := p.buildIndex(ctx)
	p.stats.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	p.cache.PutIndex(idx)
	return idx, nil
}

// FetchResource reads one resource file.
func (p *Provider) FetchResource(ctx context.Context, id string, cat provider.Category) (*provider.Resource, error) {
	if res, ok := p.cache.GetResource(id, cat); ok {
		p.stats.RecordCacheHit()
		return res, nil
	}

	start := time.Now()
	res, err := p.readResource(id, cat)
	p.stats.RecordRequest(err == nil || provider.IsNotFound(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	p.cache.PutResource(res)
	p.stats.RecordFetched(1, res.EstimatedTokens)
	return res, nil
}

// Search scores the index against the query.
func (p *Provider) Search(ctx context.Context, q provider.SearchQuery) (*provider.SearchResponse, error) {
	idx, err := p.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	return provider.SearchIndex(p.Name(), idx, q), nil
}

// HealthCheck stats the root directory.
func (p *Provider) HealthCheck(ctx context.Context) provider.Health {
	start := time.Now()
	h := provider.Health{
		Authenticated: true, // no credentials involved
		LastCheck:     start,
	}
	if _, err := os.Stat(p.root); err != nil {
		h.Status = provider.StatusUnhealthy
		h.Error = err.Error()
	} else {
		h.Status = provider.StatusHealthy
		h.Reachable = true
	}
	h.ResponseTime = time.Since(start)
	return h
}

// Stats implements provider.Provider.
func (p *Provider) Stats() provider.StatsView { return p.stats.View() }

// ResetStats implements provider.Provider.
func (p *Provider) ResetStats() { p.stats.Reset() }

func (p *Provider) buildIndex(ctx context.Context) (*provider.Index, error) {
	var (
		mu        sync.Mutex
		resources []provider.Metadata
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, p.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			p.logger.Warn("walk error, skipping entry", zap.String("path", path), zap.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			return nil // top-level files carry no category
		}
		cat, ok := provider.ParseCategory(parts[0])
		if !ok {
			return nil
		}

		meta, _, _, err := parseResourceFile(path, cat, p.Name())
		if err != nil {
			p.logger.Warn("unparseable resource, skipping", zap.String("path", path), zap.Error(err))
			return nil
		}

		mu.Lock()
		resources = append(resources, meta)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, provider.Unavailable(p.Name(), "index walk failed", err)
	}

	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Category != resources[j].Category {
			return resources[i].Category < resources[j].Category
		}
		return resources[i].ID < resources[j].ID
	})

	idx := &provider.Index{
		Provider:  p.Name(),
		Resources: resources,
		FetchedAt: time.Now(),
	}
	idx.BuildCategoryStats()
	return idx, nil
}

func (p *Provider) readResource(id string, cat provider.Category) (*provider.Resource, error) {
	path := filepath.Join(p.root, string(cat), id+".md")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, provider.NotFound(p.Name(), id, cat)
		}
		return nil, provider.Unavailable(p.Name(), "stat failed", err)
	}

	meta, fm, content, err := parseResourceFile(path, cat, p.Name())
	if err != nil {
		return nil, provider.Unavailable(p.Name(), "parse failed", err)
	}

	return &provider.Resource{
		Metadata:     meta,
		Content:      content,
		Dependencies: fm.Dependencies,
		Related:      fm.Related,
	}, nil
}
