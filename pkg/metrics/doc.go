// Package metrics defines Prometheus metrics for deployer, covering provider
// API calls, token verification, repository and deployment lifecycle, audit
// sinks and mail delivery. The dashboard exposes them on /metrics.
package metrics
