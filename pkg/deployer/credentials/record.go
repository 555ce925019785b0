package credentials

import (
	"errors"
	"fmt"
	"strings"
)

// Keys of the persisted record, in the order they are written.
const (
	KeyGitHubToken    = "GITHUB_TOKEN"
	KeyGitHubUsername = "GITHUB_USERNAME"
	KeyVercelToken    = "VERCEL_TOKEN"
)

// Keys returns the record keys in persistence order.
func Keys() []string {
	return []string{KeyGitHubToken, KeyGitHubUsername, KeyVercelToken}
}

var (
	// ErrIncomplete is returned when a record with an empty field is persisted.
	ErrIncomplete = errors.New("credential record is incomplete")
	// ErrNotFound is returned when no record has been stored yet.
	ErrNotFound = errors.New("no stored credentials, run `deployer login` first")
)

// Record is the persisted credential set.
type Record struct {
	GitHubToken    string `env:"GITHUB_TOKEN" json:"-" yaml:"-"`
	GitHubUsername string `env:"GITHUB_USERNAME" json:"githubUsername" yaml:"githubUsername"`
	VercelToken    string `env:"VERCEL_TOKEN" json:"-" yaml:"-"`
}

// Validate reports ErrIncomplete if any field is empty, and rejects values that
// cannot be written as a single KEY=VALUE line.
func (r Record) Validate() error {
	var missing []string
	for _, kv := range r.pairs() {
		if strings.TrimSpace(kv[1]) == "" {
			missing = append(missing, kv[0])
			continue
		}
		if strings.ContainsAny(kv[1], "\r\n") {
			return fmt.Errorf("%s contains a line break", kv[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// RequireGitHub checks the fields needed for GitHub operations.
func (r Record) RequireGitHub() error {
	if r.GitHubToken == "" || r.GitHubUsername == "" {
		return fmt.Errorf("%w: %s and %s are required", ErrNotFound, KeyGitHubToken, KeyGitHubUsername)
	}
	return nil
}

// RequireVercel checks the fields needed for Vercel operations.
func (r Record) RequireVercel() error {
	if r.VercelToken == "" {
		return fmt.Errorf("%w: %s is required", ErrNotFound, KeyVercelToken)
	}
	return nil
}

func (r Record) pairs() [][2]string {
	return [][2]string{
		{KeyGitHubToken, r.GitHubToken},
		{KeyGitHubUsername, r.GitHubUsername},
		{KeyVercelToken, r.VercelToken},
	}
}

// Values returns the record as a key/value map.
func (r Record) Values() map[string]string {
	out := make(map[string]string, 3)
	for _, kv := range r.pairs() {
		out[kv[0]] = kv[1]
	}
	return out
}

// Status is the printable view of a record; tokens are masked.
type Status struct {
	Storage        string `json:"storage" yaml:"storage"`
	Location       string `json:"location" yaml:"location"`
	GitHubUsername string `json:"githubUsername" yaml:"githubUsername"`
	GitHubToken    string `json:"githubToken" yaml:"githubToken"`
	VercelToken    string `json:"vercelToken" yaml:"vercelToken"`
}

// Mask keeps the last four characters of a token.
func Mask(token string) string {
	if token == "" {
		return "-"
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

// Masked returns the printable view of r. Storage and Location are left for
// the caller to fill in.
func (r Record) Masked() Status {
	return Status{
		GitHubUsername: r.GitHubUsername,
		GitHubToken:    Mask(r.GitHubToken),
		VercelToken:    Mask(r.VercelToken),
	}
}
