// Package aitmpl implements the hosted community-catalog resource provider.
//
// The catalog serves JSON over a small REST surface. Every network call is
// gated by a local dual token-bucket limiter (per-minute and per-hour) so a
// misbehaving caller exhausts local quota before it ever trips the remote
// service's own limiting.
package aitmpl

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/orchestr8/federation/internal/infrastructure/resilience"
	"github.com/orchestr8/federation/internal/provider"
)

const providerName = "aitmpl"

// Config holds catalog provider settings.
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerMinute int
	RequestsPerHour   int
	ContentTTL        time.Duration
	IndexTTL          time.Duration
	PriorityRank      int
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 20
	}
	if c.RequestsPerHour == 0 {
		c.RequestsPerHour = 300
	}
	if c.ContentTTL == 0 {
		c.ContentTTL = time.Hour
	}
	if c.IndexTTL == 0 {
		c.IndexTTL = 6 * time.Hour
	}
	if c.PriorityRank == 0 {
		c.PriorityRank = 20
	}
}

// Provider talks to the hosted catalog API.
type Provider struct {
	cfg     Config
	client  *resty.Client
	limiter *dualLimiter
	breaker *resilience.Breaker
	cache   *provider.Cache
	stats   *provider.StatsCollector
	logger  *zap.Logger
}

// New creates a catalog provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "orchestr8-federation/1.0")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &Provider{
		cfg:     cfg,
		client:  client,
		limiter: newDualLimiter(cfg.RequestsPerMinute, cfg.RequestsPerHour),
		breaker: resilience.New(providerName, resilience.Settings{Timeout: cfg.Timeout}),
		cache:   provider.NewCache(cfg.ContentTTL, cfg.IndexTTL),
		stats:   provider.NewStatsCollector(),
		logger:  logger.Named("provider.aitmpl"),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return providerName }

// Priority implements provider.Provider.
func (p *Provider) Priority() int { return p.cfg.PriorityRank }

// Initialize validates the base URL is configured.
func (p *Provider) Initialize(ctx context.Context) error {
	if p.cfg.BaseURL == "" {
		return provider.Unavailable(providerName, "catalog base URL not configured", nil)
	}
	return nil
}

// Shutdown drops the cache.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.cache.Clear()
	return nil
}

type catalogEntry struct {
	ID           string   `json:"id"`
	Category     string   `json:"category"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	Capabilities []string `json:"capabilities"`
	UseWhen      []string `json:"use_when"`
	Tokens       int      `json:"estimated_tokens"`
	URL          string   `json:"url"`
}

type catalogResponse struct {
	Version   string         `json:"version"`
	Templates []catalogEntry `json:"templates"`
}

type templateResponse struct {
	catalogEntry
	Content      string   `json:"content"`
	Dependencies []string `json:"dependencies"`
	Related      []string `json:"related"`
}

// FetchIndex lists the full catalog.
func (p *Provider) FetchIndex(ctx context.Context) (*provider.Index, error) {
	if idx, ok := p.cache.GetIndex(); ok {
		p.stats.RecordCacheHit()
		return idx, nil
	}

	start := time.Now()
	var catalog catalogResponse
	err := p.get(ctx, "/api/catalog", nil, &catalog)
	p.stats.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	resources := make([]provider.Metadata, 0, len(catalog.Templates))
	for _, e := range catalog.Templates {
		cat, ok := provider.ParseCategory(e.Category)
		if !ok {
			continue
		}
		resources = append(resources, p.entryMetadata(e, cat))
	}

	idx := &provider.Index{
		Provider:  providerName,
		Resources: resources,
		FetchedAt: time.Now(),
		Version:   catalog.Version,
	}
	idx.BuildCategoryStats()
	p.cache.PutIndex(idx)
	return idx, nil
}

// FetchResource fetches one catalog template with its content.
func (p *Provider) FetchResource(ctx context.Context, id string, cat provider.Category) (*provider.Resource, error) {
	if res, ok := p.cache.GetResource(id, cat); ok {
		p.stats.RecordCacheHit()
		return res, nil
	}

	start := time.Now()
	var tpl templateResponse
	err := p.get(ctx, fmt.Sprintf("/api/catalog/%s/%s", cat, id), nil, &tpl)
	p.stats.RecordRequest(err == nil || provider.IsNotFound(err), time.Since(start))
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, provider.NotFound(providerName, id, cat)
		}
		return nil, err
	}

	res := &provider.Resource{
		Metadata:     p.entryMetadata(tpl.catalogEntry, cat),
		Content:      tpl.Content,
		Dependencies: tpl.Dependencies,
		Related:      tpl.Related,
	}
	if res.ID == "" {
		res.ID = id
	}
	if res.EstimatedTokens == 0 {
		res.EstimatedTokens = provider.EstimateTokens(tpl.Content)
	}

	p.cache.PutResource(res)
	p.stats.RecordFetched(1, res.EstimatedTokens)
	return res, nil
}

// Search delegates to the remote search endpoint with category filtering,
// then re-scores locally so results rank on the shared scale.
func (p *Provider) Search(ctx context.Context, q provider.SearchQuery) (*provider.SearchResponse, error) {
	query := map[string]string{"q": q.Query}
	if len(q.Categories) == 1 {
		query["category"] = string(q.Categories[0])
	}

	start := time.Now()
	var catalog catalogResponse
	err := p.get(ctx, "/api/search", query, &catalog)
	p.stats.RecordRequest(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	resources := make([]provider.Metadata, 0, len(catalog.Templates))
	for _, e := range catalog.Templates {
		cat, ok := provider.ParseCategory(e.Category)
		if !ok {
			continue
		}
		resources = append(resources, p.entryMetadata(e, cat))
	}

	idx := &provider.Index{Provider: providerName, Resources: resources}
	return provider.SearchIndex(providerName, idx, q), nil
}

// HealthCheck probes the catalog root.
func (p *Provider) HealthCheck(ctx context.Context) provider.Health {
	start := time.Now()
	h := provider.Health{LastCheck: start}

	resp, err := p.client.R().SetContext(ctx).Get("/api/catalog")
	h.ResponseTime = time.Since(start)
	if err != nil {
		h.Status = provider.StatusUnhealthy
		h.Error = err.Error()
		return h
	}

	h.Reachable = true
	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		h.Status = provider.StatusUnhealthy
		h.Error = "credentials rejected"
	case resp.IsError():
		h.Status = provider.StatusDegraded
		h.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode())
	default:
		h.Status = provider.StatusHealthy
		h.Authenticated = p.cfg.Token != ""
	}
	return h
}

// Stats implements provider.Provider.
func (p *Provider) Stats() provider.StatsView { return p.stats.View() }

// ResetStats implements provider.Provider.
func (p *Provider) ResetStats() { p.stats.Reset() }

func (p *Provider) entryMetadata(e catalogEntry, cat provider.Category) provider.Metadata {
	m := provider.Metadata{
		ID:              e.ID,
		Category:        cat,
		Title:           e.Title,
		Description:     e.Description,
		Tags:            e.Tags,
		Capabilities:    e.Capabilities,
		UseWhen:         e.UseWhen,
		EstimatedTokens: e.Tokens,
		Provider:        providerName,
		SourceURI:       e.URL,
	}
	if m.Title == "" {
		m.Title = e.ID
	}
	return m
}

// get performs one catalog call: local limiter first, then the breaker,
// then the wire. Definite catalog answers (not found, quota, credentials)
// pass through the breaker as successes; only transport-level failures
// count toward opening it.
func (p *Provider) get(ctx context.Context, url string, query map[string]string, out any) error {
	if delay, ok := p.limiter.admit(); !ok {
		return provider.RateLimited(providerName, delay)
	}

	var answer error
	err := p.breaker.Do(func() error {
		resp, rerr := p.client.R().
			SetContext(ctx).
			SetQueryParams(query).
			SetResult(out).
			Get(url)
		if rerr != nil {
			return provider.Unavailable(providerName, "request failed", rerr)
		}
		answer = p.mapStatus(resp)
		if answer != nil && provider.KindOf(answer) == provider.KindUnavailable {
			return answer
		}
		return nil
	})
	if err != nil {
		return err
	}
	return answer
}

func (p *Provider) mapStatus(resp *resty.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == 404:
		return &provider.Error{Provider: providerName, Kind: provider.KindNotFound, Message: "not found upstream"}
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return provider.AuthFailed(providerName, "credentials rejected")
	case resp.StatusCode() == 429:
		retryAfter := time.Minute
		if ra := resp.Header().Get("Retry-After"); ra != "" {
			if d, perr := time.ParseDuration(ra + "s"); perr == nil {
				retryAfter = d
			}
		}
		return provider.RateLimited(providerName, retryAfter)
	default:
		return provider.Unavailable(providerName, fmt.Sprintf("unexpected status %d", resp.StatusCode()), nil)
	}
}
