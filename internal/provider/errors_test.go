package provider

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		err := NotFound("local", "api-design", CategorySkills)
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "skills/api-design")
	})

	t.Run("rate limited carries retry delay", func(t *testing.T) {
		err := RateLimited("github", 30*time.Second)
		assert.Equal(t, KindRateLimited, KindOf(err))
		assert.Equal(t, 30*time.Second, err.RetryAfter)
	})

	t.Run("unavailable wraps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Unavailable("github", "request failed", cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("kind survives wrapping", func(t *testing.T) {
		inner := AuthFailed("aitmpl", "bad token")
		wrapped := fmt.Errorf("fetch: %w", inner)
		assert.Equal(t, KindAuthentication, KindOf(wrapped))
	})

	t.Run("unknown errors normalize to unavailable", func(t *testing.T) {
		assert.Equal(t, KindUnavailable, KindOf(errors.New("boom")))
		assert.False(t, IsNotFound(errors.New("boom")))
	})
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, ok := ParseCategory(string(c))
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}

	_, ok := ParseCategory("plugins")
	assert.False(t, ok)
}

func TestIndexBuildCategoryStats(t *testing.T) {
	idx := &Index{Resources: []Metadata{
		{ID: "a", Category: CategorySkills, EstimatedTokens: 100},
		{ID: "b", Category: CategorySkills, EstimatedTokens: 300},
		{ID: "c", Category: CategoryAgents, EstimatedTokens: 50},
	}}
	idx.BuildCategoryStats()

	assert.Equal(t, 3, idx.TotalCount)
	assert.Equal(t, CategoryStats{Count: 2, TotalTokens: 400}, idx.Categories[CategorySkills])
	assert.Equal(t, CategoryStats{Count: 1, TotalTokens: 50}, idx.Categories[CategoryAgents])
}
