// Package api hosts the HTTP server, middleware, and REST handlers for the
// contest corpus. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/contests for the filtered corpus and its stats.
//   - POST /v1/refresh to trigger a scrape.
//   - GET /v1/health for corpus freshness.
package api
