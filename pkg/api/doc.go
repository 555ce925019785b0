// Package api is the gin server behind the local dashboard: request logging,
// panic recovery, a rate limited /api group for controllers, health and
// metrics endpoints, and static asset serving for everything else.
package api
