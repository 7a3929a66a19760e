package github

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Branch is a per-repository branch override. Authored config expresses it
// either as a bare string or as an object with a name field; both forms are
// accepted at the boundary and normalized here.
type Branch struct {
	Name string `yaml:"name" json:"name"`
}

// UnmarshalYAML accepts `branch: main` and `branch: {name: main}`.
func (b *Branch) UnmarshalYAML(data []byte) error {
	var s string
	if err := yaml.Unmarshal(data, &s); err == nil {
		b.Name = s
		return nil
	}

	var obj struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("branch must be a string or an object with a name field: %w", err)
	}
	b.Name = obj.Name
	return nil
}

// Or returns the branch name, or fallback when unset.
func (b Branch) Or(fallback string) string {
	if b.Name == "" {
		return fallback
	}
	return b.Name
}

// RepoConfig identifies one repository to index.
type RepoConfig struct {
	Owner  string `yaml:"owner" json:"owner"`
	Repo   string `yaml:"repo" json:"repo"`
	Branch Branch `yaml:"branch" json:"branch"`
}

// ParseRepo parses an "owner/repo" or "owner/repo@branch" spec.
func ParseRepo(spec string) (RepoConfig, error) {
	var rc RepoConfig
	if at := strings.IndexByte(spec, '@'); at >= 0 {
		rc.Branch.Name = spec[at+1:]
		spec = spec[:at]
	}
	parts := strings.Split(spec, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return rc, fmt.Errorf("invalid repo spec %q, want owner/repo", spec)
	}
	rc.Owner, rc.Repo = parts[0], parts[1]
	return rc, nil
}

// Slug returns owner/repo.
func (r RepoConfig) Slug() string { return r.Owner + "/" + r.Repo }

// Config holds GitHub provider settings.
type Config struct {
	Repos         []RepoConfig
	Token         string
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	ContentTTL    time.Duration
	IndexTTL      time.Duration
	PriorityRank  int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.github.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.ContentTTL == 0 {
		c.ContentTTL = time.Hour
	}
	if c.IndexTTL == 0 {
		c.IndexTTL = 6 * time.Hour
	}
	if c.PriorityRank == 0 {
		c.PriorityRank = 10
	}
}
