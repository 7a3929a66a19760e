/*
Package monitoring provides Prometheus metrics collection for the
federation service.

# Overview

Tracks HTTP requests, provider fetch outcomes, cache behavior, and token
accounting activity. The collector is constructed once at startup and
threaded through the server wiring; nothing registers globally beyond the
promauto default registry.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	metrics.RecordFetch("github", "success", elapsed)

Expose the standard endpoint with:

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
