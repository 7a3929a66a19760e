package provider

import (
	"context"
)

// Provider is the contract every backend variant implements. Each call
// updates the provider's stats exactly once and consults the internal
// cache before touching the network.
type Provider interface {
	// Name identifies the provider in indexes, stats, and error records.
	Name() string

	// Priority orders registry failover; lower is preferred.
	Priority() int

	// Initialize prepares transports and warms whatever the variant needs.
	Initialize(ctx context.Context) error

	// Shutdown releases transports and drops caches.
	Shutdown(ctx context.Context) error

	// FetchIndex returns the full resource listing.
	FetchIndex(ctx context.Context) (*Index, error)

	// FetchResource returns one resource by category and id.
	FetchResource(ctx context.Context, id string, cat Category) (*Resource, error)

	// Search scores the provider's index against a query.
	Search(ctx context.Context, q SearchQuery) (*SearchResponse, error)

	// HealthCheck probes the backend and reports reachability and latency.
	HealthCheck(ctx context.Context) Health

	// Stats returns a snapshot of cumulative counters.
	Stats() StatsView

	// ResetStats zeroes all counters.
	ResetStats()
}
