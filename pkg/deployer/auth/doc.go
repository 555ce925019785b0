// Package auth bootstraps deployer's credentials. It receives the GitHub
// OAuth redirect on a short-lived local server, obtains a Vercel token from
// the operator, verifies both against the providers and persists them
// exactly once.
package auth
