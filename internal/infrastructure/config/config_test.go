package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8600", cfg.Server.Port)
	assert.True(t, cfg.Local.Enabled)
	assert.Equal(t, "./resources", cfg.Local.Root)
	assert.False(t, cfg.GitHub.Enabled)
	assert.False(t, cfg.AITMPL.Enabled)
	assert.Equal(t, 20, cfg.AITMPL.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Registry.MaxConsecutiveFailures)
	assert.True(t, cfg.Tracker.Enabled)
	assert.Equal(t, "no_jit", cfg.Tracker.BaselineStrategy)
	assert.Equal(t, 3.0, cfg.Tracker.InputRate)
	assert.Equal(t, 15.0, cfg.Tracker.OutputRate)
	assert.Equal(t, 10000, cfg.Store.MaxRecords)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TRACKING_ENABLED", "false")
	t.Setenv("GITHUB_ENABLED", "true")
	t.Setenv("GITHUB_REPOS", "acme/resources@main,davila7/claude-code-templates")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.False(t, cfg.Tracker.Enabled)

	repos, err := cfg.GitHub.RepoConfigs()
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme", repos[0].Owner)
	assert.Equal(t, "resources", repos[0].Repo)
	assert.Equal(t, "main", repos[0].Branch.Name)
}

func TestValidate(t *testing.T) {
	t.Run("bad baseline strategy", func(t *testing.T) {
		cfg := Default()
		cfg.Tracker.BaselineStrategy = "no_idea"
		assert.ErrorContains(t, cfg.Validate(), "baseline strategy")
	})

	t.Run("negative store capacity", func(t *testing.T) {
		cfg := Default()
		cfg.Store.MaxRecords = -1
		assert.ErrorContains(t, cfg.Validate(), "max records")
	})

	t.Run("github enabled without repos", func(t *testing.T) {
		cfg := Default()
		cfg.GitHub.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "without repositories")
	})
}

func TestRepoConfigsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
repos:
  - owner: acme
    repo: resources
    branch: main
  - owner: davila7
    repo: claude-code-templates
    branch:
      name: develop
`), 0o644))

	cfg := GitHubConfig{ReposFile: path}
	repos, err := cfg.RepoConfigs()
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "main", repos[0].Branch.Name)
	assert.Equal(t, "develop", repos[1].Branch.Name)
}

func TestRepoConfigsRejectsBadSpec(t *testing.T) {
	cfg := GitHubConfig{Repos: []string{"not-a-repo"}}
	_, err := cfg.RepoConfigs()
	assert.Error(t, err)

	cfg = GitHubConfig{ReposFile: "/does/not/exist.yaml"}
	_, err = cfg.RepoConfigs()
	assert.ErrorContains(t, err, "repos file")
}
