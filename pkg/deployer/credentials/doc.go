// Package credentials persists and loads the credential record produced by
// `deployer login`: a GitHub token, the GitHub username it belongs to, and a
// Vercel token. Records are stored in a KEY=VALUE .env file or in the OS
// keychain, and read back with process environment variables taking precedence.
package credentials
