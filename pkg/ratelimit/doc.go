// Package ratelimit provides per-client token-bucket rate limiting middleware
// for the dashboard's Gin server, with automatic stale-entry cleanup.
package ratelimit
