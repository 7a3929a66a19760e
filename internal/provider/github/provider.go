// Package github implements the repository-hosting resource provider.
//
// Repositories are indexed through the hosting API's git tree endpoint and
// individual files are fetched through the contents endpoint. The provider
// auto-detects how each repository lays out its resources (nested category
// directories, flat suffix naming, or a mix), builds composite ids of the
// form {owner}/{repo}/{path}, and honors the API's quota headers.
package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/orchestr8/federation/internal/infrastructure/resilience"
	"github.com/orchestr8/federation/internal/provider"
)

const providerName = "github"

// Provider fetches resources from version-controlled repositories.
type Provider struct {
	cfg     Config
	client  *resty.Client
	breaker *resilience.Breaker
	cache   *provider.Cache
	stats   *provider.StatsCollector
	logger  *zap.Logger

	mu             sync.Mutex
	quotaRemaining int
	quotaReset     time.Time
	layouts        map[string]Layout // keyed by owner/repo
}

// New creates a GitHub provider for the configured repositories.
func New(cfg Config, logger *zap.Logger) *Provider {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryAttempts
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient())
	client.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", "orchestr8-federation/1.0")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	breaker := resilience.New(providerName, resilience.Settings{
		MaxRequests: 2,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	return &Provider{
		cfg:            cfg,
		client:         client,
		breaker:        breaker,
		cache:          provider.NewCache(cfg.ContentTTL, cfg.IndexTTL),
		stats:          provider.NewStatsCollector(),
		logger:         logger.Named("provider.github"),
		quotaRemaining: -1, // unknown until first response
		layouts:        make(map[string]Layout),
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return providerName }

// Priority implements provider.Provider.
func (p *Provider) Priority() int { return p.cfg.PriorityRank }

// Initialize validates that at least one repository is configured.
func (p *Provider) Initialize(ctx context.Context) error {
	if len(p.cfg.Repos) == 0 {
		return provider.Unavailable(providerName, "no repositories configured", nil)
	}
	return nil
}

// Shutdown drops caches and leaves the transport to the GC.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.cache.Clear()
	return nil
}

// FetchIndex lists every resource across the configured repositories.
func (p *Provider) FetchIndex(ctx context.Context) (*provider.Index, error) {
	if idx, ok := p.cache.GetIndex(); ok {
		p.stats.RecordCacheHit()
		return idx, nil
	}

	start := time.Now()
	var resources []provider.Metadata
	var failures []string

	for _, rc := range p.cfg.Repos {
		repoResources, err := p.indexRepo(ctx, rc)
		if err != nil {
			p.logger.Warn("repository index failed",
				zap.String("repo", rc.Slug()),
				zap.Error(err),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", rc.Slug(), err))
			continue
		}
		resources = append(resources, repoResources...)
	}

	if len(resources) == 0 && len(failures) > 0 {
		p.stats.RecordRequest(false, time.Since(start))
		return nil, provider.Unavailable(providerName, "all repositories failed: "+strings.Join(failures, "; "), nil)
	}
	p.stats.RecordRequest(true, time.Since(start))

	idx := &provider.Index{
		Provider:  providerName,
		Resources: resources,
		FetchedAt: time.Now(),
	}
	idx.BuildCategoryStats()
	p.cache.PutIndex(idx)
	return idx, nil
}

// FetchResource fetches one file by its composite id.
func (p *Provider) FetchResource(ctx context.Context, id string, cat provider.Category) (*provider.Resource, error) {
	if res, ok := p.cache.GetResource(id, cat); ok {
		p.stats.RecordCacheHit()
		return res, nil
	}

	owner, repo, repoPath, ok := splitResourceID(id)
	if !ok {
		return nil, provider.NotFound(providerName, id, cat)
	}

	rc, found := p.repoConfig(owner, repo)
	if !found {
		return nil, provider.NotFound(providerName, id, cat)
	}

	start := time.Now()
	res, err := p.fetchContents(ctx, rc, repoPath, id, cat)
	p.stats.RecordRequest(err == nil || provider.IsNotFound(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	p.cache.PutResource(res)
	p.stats.RecordFetched(1, res.EstimatedTokens)
	return res, nil
}

// Search scores the combined repository index against the query.
func (p *Provider) Search(ctx context.Context, q provider.SearchQuery) (*provider.SearchResponse, error) {
	idx, err := p.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	return provider.SearchIndex(providerName, idx, q), nil
}

// HealthCheck probes the rate-limit endpoint, which never consumes quota.
func (p *Provider) HealthCheck(ctx context.Context) provider.Health {
	start := time.Now()
	h := provider.Health{LastCheck: start}

	resp, err := p.client.R().SetContext(ctx).Get("/rate_limit")
	h.ResponseTime = time.Since(start)
	if err != nil {
		h.Status = provider.StatusUnhealthy
		h.Error = err.Error()
		return h
	}
	p.recordQuota(resp)

	h.Reachable = true
	switch {
	case resp.StatusCode() == 401:
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

// Stats returns counters plus the remote quota observed on the last call.
func (p *Provider) Stats() provider.StatsView {
	v := p.stats.View()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quotaRemaining >= 0 {
		v.QuotaRemaining = p.quotaRemaining
		if !p.quotaReset.IsZero() {
			reset := p.quotaReset
			v.QuotaResetAt = &reset
		}
	}
	return v
}

// ResetStats implements provider.Provider.
func (p *Provider) ResetStats() { p.stats.Reset() }

type treeResponse struct {
	SHA       string      `json:"sha"`
	Tree      []treeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

type treeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	Size     int    `json:"size"`
	HTMLURL  string `json:"html_url"`
}

func (p *Provider) indexRepo(ctx context.Context, rc RepoConfig) ([]provider.Metadata, error) {
	branch := rc.Branch.Or("main")

	var tree treeResponse
	url := fmt.Sprintf("/repos/%s/%s/git/trees/%s", rc.Owner, rc.Repo, branch)
	if err := p.get(ctx, url, map[string]string{"recursive": "1"}, &tree); err != nil {
		return nil, err
	}
	if tree.Truncated {
		p.logger.Warn("tree listing truncated by API", zap.String("repo", rc.Slug()))
	}

	var paths []string
	for _, e := range tree.Tree {
		if e.Type == "blob" {
			paths = append(paths, e.Path)
		}
	}
	layout := detectLayout(paths)
	p.mu.Lock()
	p.layouts[rc.Slug()] = layout
	p.mu.Unlock()

	var resources []provider.Metadata
	for _, e := range tree.Tree {
		if e.Type != "blob" {
			continue
		}
		cat, ok := classifyPath(e.Path)
		if !ok {
			continue
		}
		resources = append(resources, provider.Metadata{
			ID:              resourceID(rc, e.Path),
			Category:        cat,
			Title:           displayTitle(e.Path),
			EstimatedTokens: e.Size / 4,
			Provider:        providerName,
			SourceURI:       fmt.Sprintf("https://github.com/%s/blob/%s/%s", rc.Slug(), branch, e.Path),
		})
	}
	return resources, nil
}

func (p *Provider) fetchContents(ctx context.Context, rc RepoConfig, repoPath, id string, cat provider.Category) (*provider.Resource, error) {
	var contents contentsResponse
	url := fmt.Sprintf("/repos/%s/%s/contents/%s", rc.Owner, rc.Repo, repoPath)
	query := map[string]string{"ref": rc.Branch.Or("main")}
	if err := p.get(ctx, url, query, &contents); err != nil {
		if provider.IsNotFound(err) {
			return nil, provider.NotFound(providerName, id, cat)
		}
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return nil, provider.Unavailable(providerName, "undecodable blob content", err)
	}

	fm, body, err := provider.SplitFrontMatter(string(raw))
	if err != nil {
		p.logger.Warn("bad front matter, serving raw content",
			zap.String("id", id),
			zap.Error(err),
		)
		body = string(raw)
	}

	meta := provider.Metadata{
		ID:        id,
		Category:  cat,
		Provider:  providerName,
		SourceURI: contents.HTMLURL,
	}
	if meta.SourceURI == "" {
		meta.SourceURI = fmt.Sprintf("https://github.com/%s/blob/%s/%s", rc.Slug(), rc.Branch.Or("main"), repoPath)
	}
	provider.ApplyFrontMatter(&meta, fm, body)
	if meta.Title == id {
		meta.Title = displayTitle(repoPath)
	}

	return &provider.Resource{
		Metadata:     meta,
		Content:      body,
		Dependencies: fm.Dependencies,
		Related:      fm.Related,
	}, nil
}

// get performs one API call through the circuit breaker and maps failures
// onto the provider error taxonomy. Only transport-level failures count
// against the breaker: not-found, quota, and credential answers are the
// backend responding, so they pass through as successes.
func (p *Provider) get(ctx context.Context, url string, query map[string]string, out any) error {
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
		p.recordQuota(resp)
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
	case resp.StatusCode() == 401:
		return provider.AuthFailed(providerName, "credentials rejected")
	case resp.StatusCode() == 403 || resp.StatusCode() == 429:
		if remaining := resp.Header().Get("X-RateLimit-Remaining"); remaining == "0" {
			return provider.RateLimited(providerName, p.retryAfter(resp))
		}
		return provider.AuthFailed(providerName, fmt.Sprintf("forbidden: %s", resp.Status()))
	default:
		return provider.Unavailable(providerName, fmt.Sprintf("unexpected status %d", resp.StatusCode()), nil)
	}
}

func (p *Provider) retryAfter(resp *resty.Response) time.Duration {
	if reset := resp.Header().Get("X-RateLimit-Reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if d := time.Until(time.Unix(epoch, 0)); d > 0 {
				return d
			}
		}
	}
	return time.Minute
}

func (p *Provider) recordQuota(resp *resty.Response) {
	remaining := resp.Header().Get("X-RateLimit-Remaining")
	if remaining == "" {
		return
	}
	n, err := strconv.Atoi(remaining)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotaRemaining = n
	if reset := resp.Header().Get("X-RateLimit-Reset"); reset != "" {
		if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
			p.quotaReset = time.Unix(epoch, 0)
		}
	}
}

func (p *Provider) repoConfig(owner, repo string) (RepoConfig, bool) {
	for _, rc := range p.cfg.Repos {
		if rc.Owner == owner && rc.Repo == repo {
			return rc, true
		}
	}
	return RepoConfig{}, false
}

// Layout reports the detected layout for a repository, if indexed yet.
func (p *Provider) Layout(slug string) (Layout, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.layouts[slug]
	return l, ok
}
