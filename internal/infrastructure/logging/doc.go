// Package logging wraps zap with the service's logger configuration:
// JSON encoding in production, colored console output in development.
package logging
