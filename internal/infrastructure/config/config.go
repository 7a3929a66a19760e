package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/orchestr8/federation/internal/provider/github"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Local     LocalConfig
	GitHub    GitHubConfig
	AITMPL    AITMPLConfig
	Registry  RegistryConfig
	Tracker   TrackerConfig
	Store     StoreConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8600"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LocalConfig holds local provider configuration.
type LocalConfig struct {
	Enabled    bool          `envconfig:"LOCAL_ENABLED" default:"true"`
	Root       string        `envconfig:"LOCAL_ROOT" default:"./resources"`
	ContentTTL time.Duration `envconfig:"LOCAL_CONTENT_TTL" default:"4h"`
	IndexTTL   time.Duration `envconfig:"LOCAL_INDEX_TTL" default:"24h"`
}

// GitHubConfig holds repository provider configuration. Repos come either
// from REPOS (comma-separated owner/repo@branch specs) or from a YAML file.
type GitHubConfig struct {
	Enabled       bool          `envconfig:"GITHUB_ENABLED" default:"false"`
	Repos         []string      `envconfig:"GITHUB_REPOS"`
	ReposFile     string        `envconfig:"GITHUB_REPOS_FILE"`
	Token         string        `envconfig:"GITHUB_TOKEN"`
	APIURL        string        `envconfig:"GITHUB_API_URL" default:"https://api.github.com"`
	Timeout       time.Duration `envconfig:"GITHUB_TIMEOUT" default:"30s"`
	RetryAttempts int           `envconfig:"GITHUB_RETRY_ATTEMPTS" default:"3"`
	CacheTTL      time.Duration `envconfig:"GITHUB_CACHE_TTL" default:"1h"`
}

// AITMPLConfig holds catalog provider configuration.
type AITMPLConfig struct {
	Enabled           bool          `envconfig:"AITMPL_ENABLED" default:"false"`
	APIURL            string        `envconfig:"AITMPL_API_URL" default:"https://www.aitmpl.com"`
	Token             string        `envconfig:"AITMPL_TOKEN"`
	Timeout           time.Duration `envconfig:"AITMPL_TIMEOUT" default:"30s"`
	RequestsPerMinute int           `envconfig:"AITMPL_RPM" default:"20"`
	RequestsPerHour   int           `envconfig:"AITMPL_RPH" default:"300"`
	CacheTTL          time.Duration `envconfig:"AITMPL_CACHE_TTL" default:"1h"`
}

// RegistryConfig holds provider registry configuration.
type RegistryConfig struct {
	HealthCheckInterval    time.Duration `envconfig:"HEALTH_CHECK_INTERVAL" default:"60s"`
	MaxConsecutiveFailures int           `envconfig:"MAX_CONSECUTIVE_FAILURES" default:"3"`
	AutoDisableUnhealthy   bool          `envconfig:"AUTO_DISABLE_UNHEALTHY" default:"true"`
	ProviderTimeout        time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
}

// TrackerConfig holds token tracker configuration.
type TrackerConfig struct {
	Enabled                  bool    `envconfig:"TRACKING_ENABLED" default:"true"`
	Deduplication            bool    `envconfig:"TRACKING_DEDUPLICATION" default:"true"`
	BaselineStrategy         string  `envconfig:"BASELINE_STRATEGY" default:"no_jit"`
	AssumedTokensPerResource int     `envconfig:"ASSUMED_TOKENS_PER_RESOURCE" default:"500"`
	CacheMultiplier          float64 `envconfig:"CACHE_MULTIPLIER" default:"1.1"`
	InputRate                float64 `envconfig:"COST_INPUT_PER_MILLION" default:"3.0"`
	OutputRate               float64 `envconfig:"COST_OUTPUT_PER_MILLION" default:"15.0"`
	CacheCreationRate        float64 `envconfig:"COST_CACHE_CREATION_PER_MILLION" default:"3.75"`
	CacheReadRate            float64 `envconfig:"COST_CACHE_READ_PER_MILLION" default:"0.30"`
}

// StoreConfig holds usage ledger configuration.
type StoreConfig struct {
	MaxRecords int           `envconfig:"STORE_MAX_RECORDS" default:"10000"`
	Retention  time.Duration `envconfig:"STORE_RETENTION" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds HTTP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	var cfg Config
	// envconfig fills struct defaults even with an empty environment.
	_ = envconfig.Process("", &cfg)
	return &cfg
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Tracker.BaselineStrategy {
	case "no_jit", "no_cache", "custom":
	default:
		return fmt.Errorf("invalid baseline strategy %q", c.Tracker.BaselineStrategy)
	}
	if c.Store.MaxRecords < 0 {
		return fmt.Errorf("store max records must be non-negative")
	}
	if c.GitHub.Enabled && len(c.GitHub.Repos) == 0 && c.GitHub.ReposFile == "" {
		return fmt.Errorf("github provider enabled without repositories")
	}
	return nil
}

// repoFile is the YAML shape of the repository list file. Branch accepts
// both the bare-string and the structured object form.
type repoFile struct {
	Repos []github.RepoConfig `yaml:"repos"`
}

// RepoConfigs resolves the repository list from env specs plus the optional
// YAML file.
func (c *GitHubConfig) RepoConfigs() ([]github.RepoConfig, error) {
	var repos []github.RepoConfig

	for _, spec := range c.Repos {
		rc, err := github.ParseRepo(spec)
		if err != nil {
			return nil, err
		}
		repos = append(repos, rc)
	}

	if c.ReposFile != "" {
		raw, err := os.ReadFile(c.ReposFile)
		if err != nil {
			return nil, fmt.Errorf("repos file: %w", err)
		}
		var file repoFile
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("repos file: %w", err)
		}
		repos = append(repos, file.Repos...)
	}

	return repos, nil
}
