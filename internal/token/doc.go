// Package token implements the token accounting layer: per-event tracking
// with deduplication, an in-memory usage ledger with session grouping,
// pure aggregation math, and a time-windowed metrics facade.
//
// Every resource load produces at most one UsageRecord. The record captures
// what the load actually cost in language-model tokens and what it would
// have cost under a configurable baseline (no just-in-time loading, or no
// prompt caching), so efficiency and monetary savings can be reported in
// real time.
//
// Construction follows the explicit-system pattern: build a System value
// at process start and inject it wherever loads occur. Nothing in this
// package is a global.
package token
