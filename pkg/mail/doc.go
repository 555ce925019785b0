// Package mail sends deployment notifications over SMTP with retry and
// exponential backoff.
package mail
