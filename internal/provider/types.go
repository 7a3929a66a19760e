package provider

import (
	"time"
)

// Category classifies a resource by the role it plays in an agent workflow.
type Category string

const (
	CategoryAgents    Category = "agents"
	CategorySkills    Category = "skills"
	CategoryCommands  Category = "commands"
	CategoryTemplates Category = "templates"
	CategoryHooks     Category = "hooks"
)

// Categories lists every known category in stable order.
func Categories() []Category {
	return []Category{CategoryAgents, CategorySkills, CategoryCommands, CategoryTemplates, CategoryHooks}
}

// ParseCategory returns the category matching s, or false when unknown.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryAgents, CategorySkills, CategoryCommands, CategoryTemplates, CategoryHooks:
		return Category(s), true
	default:
		return "", false
	}
}

// Metadata describes a remote resource without its content.
// Immutable once fetched; copy, never mutate.
type Metadata struct {
	ID              string   `json:"id"`
	Category        Category `json:"category"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	UseWhen         []string `json:"use_when,omitempty"`
	EstimatedTokens int      `json:"estimated_tokens"`
	Provider        string   `json:"provider"`
	SourceURI       string   `json:"source_uri"`
}

// CategoryStats summarizes one category within an index.
type CategoryStats struct {
	Count       int `json:"count"`
	TotalTokens int `json:"total_tokens"`
}

// Index is a provider's full resource listing, rebuilt on each non-cached
// FetchIndex call and owned by the provider that built it.
type Index struct {
	Provider   string                     `json:"provider"`
	TotalCount int                        `json:"total_count"`
	Resources  []Metadata                 `json:"resources"`
	Categories map[Category]CategoryStats `json:"categories"`
	FetchedAt  time.Time                  `json:"fetched_at"`
	Version    string                     `json:"version,omitempty"`
}

// BuildCategoryStats recomputes the per-category rollup from the resource list.
func (idx *Index) BuildCategoryStats() {
	stats := make(map[Category]CategoryStats)
	for _, m := range idx.Resources {
		s := stats[m.Category]
		s.Count++
		s.TotalTokens += m.EstimatedTokens
		stats[m.Category] = s
	}
	idx.Categories = stats
	idx.TotalCount = len(idx.Resources)
}

// Resource is a fully fetched resource: metadata plus content.
type Resource struct {
	Metadata
	Content      string   `json:"content"`
	Dependencies []string `json:"dependencies,omitempty"`
	Related      []string `json:"related,omitempty"`
}

// HealthStatus is the coarse health classification of a provider.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is a point-in-time health probe result. It is written only by the
// provider's own health routine and the registry's auto-disable logic.
type Health struct {
	Status              HealthStatus  `json:"status"`
	Reachable           bool          `json:"reachable"`
	Authenticated       bool          `json:"authenticated"`
	ResponseTime        time.Duration `json:"response_time_ms"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastCheck           time.Time     `json:"last_check"`
	Error               string        `json:"error,omitempty"`
}

// SearchQuery selects and ranks resources across a provider's index.
type SearchQuery struct {
	Query      string     `json:"query"`
	Categories []Category `json:"categories,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	MinScore   float64    `json:"min_score,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// SearchResult is one scored hit.
type SearchResult struct {
	Metadata
	Score float64 `json:"score"`
}

// SearchResponse carries scored hits plus where they came from.
type SearchResponse struct {
	Provider   string         `json:"provider"`
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	TotalFound int            `json:"total_found"`
	SearchedAt time.Time      `json:"searched_at"`
}
