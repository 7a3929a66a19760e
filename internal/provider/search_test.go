package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	meta := Metadata{
		ID:              "api-design",
		Category:        CategorySkills,
		Tags:            []string{"api", "rest"},
		Capabilities:    []string{"api endpoint design"},
		UseWhen:         []string{"designing apis"},
		EstimatedTokens: 500,
	}

	t.Run("empty query scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Score(SearchQuery{}, meta))
	})

	t.Run("tag match", func(t *testing.T) {
		// "rest" hits one tag (10) plus the compact bonus (5).
		assert.Equal(t, 15.0, Score(SearchQuery{Query: "rest"}, meta))
	})

	t.Run("term hits multiple fields", func(t *testing.T) {
		// "api" matches one tag, the capability, and the use_when hint:
		// 10 + 8 + 5, plus 5 for the compact size.
		assert.Equal(t, 28.0, Score(SearchQuery{Query: "api"}, meta))
	})

	t.Run("category match", func(t *testing.T) {
		s := Score(SearchQuery{Query: "rest", Categories: []Category{CategorySkills}}, meta)
		assert.Equal(t, 30.0, s)
	})

	t.Run("no compact bonus for large resources", func(t *testing.T) {
		big := meta
		big.EstimatedTokens = 5000
		assert.Equal(t, 10.0, Score(SearchQuery{Query: "rest"}, big))
	})

	t.Run("no compact bonus without other matches", func(t *testing.T) {
		assert.Equal(t, 0.0, Score(SearchQuery{Query: "zzz"}, meta))
	})

	t.Run("explicit tags match without query terms", func(t *testing.T) {
		s := Score(SearchQuery{Tags: []string{"REST"}}, meta)
		assert.Equal(t, 15.0, s)
	})
}

func TestSearchIndex(t *testing.T) {
	idx := &Index{
		Provider: "test",
		Resources: []Metadata{
			{ID: "a", Category: CategorySkills, Tags: []string{"api"}, EstimatedTokens: 200},
			{ID: "b", Category: CategoryAgents, Tags: []string{"api", "reviews apis"}, EstimatedTokens: 200},
			{ID: "c", Category: CategorySkills, Tags: []string{"testing"}, EstimatedTokens: 200},
		},
	}

	t.Run("orders by score", func(t *testing.T) {
		resp := SearchIndex("test", idx, SearchQuery{Query: "api"})
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "b", resp.Results[0].ID)
		assert.Equal(t, "a", resp.Results[1].ID)
		assert.Equal(t, 2, resp.TotalFound)
	})

	t.Run("min score cut", func(t *testing.T) {
		resp := SearchIndex("test", idx, SearchQuery{Query: "api", MinScore: 20})
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "b", resp.Results[0].ID)
	})

	t.Run("limit truncates but total counts all", func(t *testing.T) {
		resp := SearchIndex("test", idx, SearchQuery{Query: "api", Limit: 1})
		assert.Len(t, resp.Results, 1)
		assert.Equal(t, 2, resp.TotalFound)
	})

	t.Run("ties keep index order", func(t *testing.T) {
		tied := &Index{Resources: []Metadata{
			{ID: "first", Tags: []string{"x"}, EstimatedTokens: 100},
			{ID: "second", Tags: []string{"x"}, EstimatedTokens: 100},
		}}
		resp := SearchIndex("test", tied, SearchQuery{Query: "x"})
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "first", resp.Results[0].ID)
	})
}
