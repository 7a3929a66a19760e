package provider

import (
	"sort"
	"strings"
	"time"
)

// Scoring weights shared by every provider variant so merged results from
// different backends rank on the same scale.
const (
	weightTag        = 10.0
	weightCapability = 8.0
	weightUseWhen    = 5.0
	weightCategory   = 15.0
	weightCompact    = 5.0

	compactTokenLimit = 1000
)

// Score rates one resource against a query. Zero means no match.
func Score(q SearchQuery, m Metadata) float64 {
	terms := strings.Fields(strings.ToLower(q.Query))
	if len(terms) == 0 && len(q.Categories) == 0 && len(q.Tags) == 0 {
		return 0
	}

	score := 0.0
	score += weightTag * float64(countMatches(terms, q.Tags, m.Tags))
	score += weightCapability * float64(countMatches(terms, nil, m.Capabilities))
	score += weightUseWhen * float64(countMatches(terms, nil, m.UseWhen))

	for _, cat := range q.Categories {
		if cat == m.Category {
			score += weightCategory
			break
		}
	}

	if score > 0 && m.EstimatedTokens > 0 && m.EstimatedTokens < compactTokenLimit {
		score += weightCompact
	}
	return score
}

// countMatches counts fields containing any query term or any explicitly
// requested tag. Each field counts at most once.
func countMatches(terms, wanted, fields []string) int {
	n := 0
	for _, f := range fields {
		lower := strings.ToLower(f)
		matched := false
		for _, t := range terms {
			if strings.Contains(lower, t) {
				matched = true
				break
			}
		}
		if !matched {
			for _, w := range wanted {
				if strings.EqualFold(w, f) {
					matched = true
					break
				}
			}
		}
		if matched {
			n++
		}
	}
	return n
}

// SearchIndex scores an index against a query, drops results below
// MinScore, and truncates at Limit. Ties keep original index order.
func SearchIndex(name string, idx *Index, q SearchQuery) *SearchResponse {
	var results []SearchResult
	for _, m := range idx.Resources {
		s := Score(q, m)
		if s <= 0 || s < q.MinScore {
			continue
		}
		results = append(results, SearchResult{Metadata: m, Score: s})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	total := len(results)
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}

	return &SearchResponse{
		Provider:   name,
		Query:      q.Query,
		Results:    results,
		TotalFound: total,
		SearchedAt: time.Now(),
	}
}
