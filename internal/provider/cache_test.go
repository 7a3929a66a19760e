package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheResources(t *testing.T) {
	cache := NewCache(time.Hour, time.Hour)
	res := &Resource{Metadata: Metadata{ID: "api-design", Category: CategorySkills}}

	t.Run("miss before put", func(t *testing.T) {
		_, ok := cache.GetResource("api-design", CategorySkills)
		assert.False(t, ok)
	})

	t.Run("hit after put", func(t *testing.T) {
		cache.PutResource(res)
		got, ok := cache.GetResource("api-design", CategorySkills)
		require.True(t, ok)
		assert.Equal(t, res, got)
	})

	t.Run("keyed by category too", func(t *testing.T) {
		_, ok := cache.GetResource("api-design", CategoryAgents)
		assert.False(t, ok)
	})

	t.Run("size", func(t *testing.T) {
		assert.Equal(t, 1, cache.Size())
	})
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(-time.Second, -time.Second) // everything already stale

	cache.PutResource(&Resource{Metadata: Metadata{ID: "a", Category: CategorySkills}})
	_, ok := cache.GetResource("a", CategorySkills)
	assert.False(t, ok)

	cache.PutIndex(&Index{Provider: "test"})
	_, ok = cache.GetIndex()
	assert.False(t, ok)
}

func TestCacheIndex(t *testing.T) {
	cache := NewCache(time.Hour, time.Hour)

	_, ok := cache.GetIndex()
	assert.False(t, ok)

	idx := &Index{Provider: "test", TotalCount: 3}
	cache.PutIndex(idx)
	got, ok := cache.GetIndex()
	require.True(t, ok)
	assert.Equal(t, idx, got)
}

func TestCacheClear(t *testing.T) {
	cache := NewCache(time.Hour, time.Hour)
	cache.PutResource(&Resource{Metadata: Metadata{ID: "a", Category: CategorySkills}})
	cache.PutIndex(&Index{})

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
	_, ok := cache.GetIndex()
	assert.False(t, ok)
}
