package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orchestr8/federation/internal/loader"
	"github.com/orchestr8/federation/internal/provider"
	"github.com/orchestr8/federation/internal/provider/registry"
	"github.com/orchestr8/federation/internal/token"
)

// Handlers hosts the read surface over the federation and token layers.
type Handlers struct {
	registry *registry.Registry
	tokens   *token.System
	loader   *loader.Loader
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates the handler set. tokens may be nil when tracking is
// disabled; token routes then answer 503.
func NewHandlers(reg *registry.Registry, tokens *token.System, ld *loader.Loader, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		registry: reg,
		tokens:   tokens,
		loader:   ld,
		logger:   logger.Named("http"),
		started:  time.Now(),
	}
}

// Root returns the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "federation",
		"status":  "running",
	})
}

// HealthCheck reports overall service health: degraded when any registered
// provider is unhealthy or disabled.
func (h *Handlers) HealthCheck(c *gin.Context) {
	infos := h.registry.List()
	status := "healthy"
	for _, info := range infos {
		if !info.Enabled || info.Health.Status != provider.StatusHealthy {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"providers": infos,
		"tracking":  h.tokens != nil,
		"uptime":    time.Since(h.started).String(),
	})
}

// queryWindow parses period/start/end query parameters into a token query.
// An explicit start+end range overrides the period; an unrecognized period
// is a client error.
func (h *Handlers) queryWindow(c *gin.Context) (token.Query, bool) {
	q := token.Query{
		Period:   token.PeriodLastHour,
		Category: c.Query("category"),
	}

	if s := c.Query("period"); s != "" {
		p, ok := token.ParsePeriod(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown period: " + s})
			return token.Query{}, false
		}
		q.Period = p
	}

	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr != "" || endStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start time"})
			return token.Query{}, false
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end time"})
			return token.Query{}, false
		}
		q.Range = &token.TimeRange{Start: start, End: end}
	}

	return q, true
}

// requireTokens aborts with 503 when the token subsystem is disabled.
func (h *Handlers) requireTokens(c *gin.Context) bool {
	if h.tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token tracking disabled"})
		return false
	}
	return true
}

// GetEfficiency returns the efficiency snapshot for a window.
func (h *Handlers) GetEfficiency(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	q, ok := h.queryWindow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tokens.Metrics.EfficiencySnapshot(q))
}

// GetSummary returns the aggregate usage summary for a window.
func (h *Handlers) GetSummary(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	q, ok := h.queryWindow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tokens.Metrics.GetSummary(q))
}

// GetByCategory returns per-category breakdowns for a window.
func (h *Handlers) GetByCategory(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	q, ok := h.queryWindow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"categories": h.tokens.Metrics.ByCategory(q),
	})
}

// GetCostSavings returns the dollar-cost view for a window.
func (h *Handlers) GetCostSavings(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	q, ok := h.queryWindow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tokens.Metrics.GetCostSavings(q))
}

// GetTrends returns the trend for a window against the preceding window of
// equal width.
func (h *Handlers) GetTrends(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	q, ok := h.queryWindow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trend": h.tokens.Metrics.GetTrend(q),
	})
}

// GetTopResources ranks resources over a window.
func (h *Handlers) GetTopResources(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	q, ok := h.queryWindow(c)
	if !ok {
		return
	}

	rankBy := token.RankBy(c.DefaultQuery("rank_by", string(token.RankByTokens)))
	switch rankBy {
	case token.RankByEfficiency, token.RankBySavings, token.RankByTokens:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rank_by: " + string(rankBy)})
		return
	}

	limit := 10
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{
		"resources": h.tokens.Metrics.TopResources(q, rankBy, limit),
	})
}

// GetSession returns one session's efficiency view.
func (h *Handlers) GetSession(c *gin.Context) {
	if !h.requireTokens(c) {
		return
	}
	id := c.Param("id")
	view := h.tokens.Metrics.SessionEfficiency(id)
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session: " + id})
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListProviders returns all registered providers with health and stats.
func (h *Handlers) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers": h.registry.List(),
	})
}

// GetProviderHealth returns the last observed health of one provider.
func (h *Handlers) GetProviderHealth(c *gin.Context) {
	name := c.Param("name")
	health, ok := h.registry.Health(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider: " + name})
		return
	}
	c.JSON(http.StatusOK, health)
}

// GetProviderStats returns one provider's request statistics.
func (h *Handlers) GetProviderStats(c *gin.Context) {
	name := c.Param("name")
	p, ok := h.registry.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider: " + name})
		return
	}
	c.JSON(http.StatusOK, p.Stats())
}

// GetResource fetches a resource through the federation with priority
// failover, tracking the load against the optional session query parameter.
func (h *Handlers) GetResource(c *gin.Context) {
	cat, ok := provider.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + c.Param("category")})
		return
	}

	result, err := h.loader.Load(c.Request.Context(), c.Param("id"), cat, c.Query("session"))
	if err != nil {
		h.renderProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SearchResources fans a search out across all enabled providers.
func (h *Handlers) SearchResources(c *gin.Context) {
	q := provider.SearchQuery{
		Query: c.Query("q"),
	}
	if s := c.Query("category"); s != "" {
		cat, ok := provider.ParseCategory(s)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + s})
			return
		}
		q.Categories = []provider.Category{cat}
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = n
	}

	resp, err := h.loader.Search(c.Request.Context(), q)
	if err != nil {
		h.renderProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// renderProviderError maps the provider error taxonomy onto HTTP statuses.
func (h *Handlers) renderProviderError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	switch provider.KindOf(err) {
	case provider.KindNotFound:
		status = http.StatusNotFound
	case provider.KindRateLimited:
		status = http.StatusTooManyRequests
	case provider.KindAuthentication:
		status = http.StatusBadGateway
	case provider.KindUnavailable:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
