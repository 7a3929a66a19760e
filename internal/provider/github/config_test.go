package github

import (
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepo(t *testing.T) {
	t.Run("owner and repo", func(t *testing.T) {
		rc, err := ParseRepo("acme/resources")
		require.NoError(t, err)
		assert.Equal(t, "acme", rc.Owner)
		assert.Equal(t, "resources", rc.Repo)
		assert.Equal(t, "main", rc.Branch.Or("main"))
	})

	t.Run("with branch", func(t *testing.T) {
		rc, err := ParseRepo("acme/resources@develop")
		require.NoError(t, err)
		assert.Equal(t, "develop", rc.Branch.Name)
	})

	t.Run("invalid specs", func(t *testing.T) {
		for _, spec := range []string{"", "acme", "acme/", "/resources", "a/b/c"} {
			_, err := ParseRepo(spec)
			assert.Error(t, err, spec)
		}
	})
}

func TestBranchYAMLDualForm(t *testing.T) {
	t.Run("bare string", func(t *testing.T) {
		var rc RepoConfig
		require.NoError(t, yaml.Unmarshal([]byte("owner: acme\nrepo: r\nbranch: develop\n"), &rc))
		assert.Equal(t, "develop", rc.Branch.Name)
	})

	t.Run("object form", func(t *testing.T) {
		var rc RepoConfig
		require.NoError(t, yaml.Unmarshal([]byte("owner: acme\nrepo: r\nbranch:\n  name: develop\n"), &rc))
		assert.Equal(t, "develop", rc.Branch.Name)
	})

	t.Run("absent branch falls back", func(t *testing.T) {
		var rc RepoConfig
		require.NoError(t, yaml.Unmarshal([]byte("owner: acme\nrepo: r\n"), &rc))
		assert.Equal(t, "main", rc.Branch.Or("main"))
	})
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, "https://api.github.com", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Hour, cfg.ContentTTL)
	assert.Equal(t, 6*time.Hour, cfg.IndexTTL)
	assert.Equal(t, 10, cfg.PriorityRank)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "acme/resources", RepoConfig{Owner: "acme", Repo: "resources"}.Slug())
}
