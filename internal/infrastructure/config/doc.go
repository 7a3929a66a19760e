// Package config loads service configuration from environment variables,
// with an optional YAML file for the repository list since structured
// per-repo settings do not fit env vars.
package config
