// Package provider defines the resource provider contract and shared
// building blocks for the federation layer.
//
// A provider fetches context resources (agent definitions, skills, workflow
// templates) from one backend: a local filesystem subtree, a git hosting
// API, or a hosted catalog API. Each variant owns its own cache, transport
// client, and rate limiting; the registry package composes them behind a
// single lookup surface.
//
// Provider Interface:
//   - FetchIndex(): full resource listing with per-category stats
//   - FetchResource(): one resource by (category, id), cache first
//   - Search(): scored search across the provider's index
//   - HealthCheck(): reachability, auth, and latency probe
//
// Errors follow a fixed taxonomy (NotFound, RateLimited, Unavailable,
// Authentication) so the registry can make failover decisions without
// knowing provider internals.
package provider
