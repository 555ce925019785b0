package auth

import (
	"errors"
	"fmt"

	"github.com/deployer-cli/deployer/pkg/deployer/credentials"
)

// FieldState tracks one credential field through the bootstrap.
type FieldState int

const (
	StateUnset FieldState = iota
	StatePending
	StateVerified
)

func (s FieldState) String() string {
	switch s {
	case StateUnset:
		return "unset"
	case StatePending:
		return "pending"
	case StateVerified:
		return "verified"
	default:
		return fmt.Sprintf("FieldState(%d)", int(s))
	}
}

var (
	ErrIncomplete         = credentials.ErrIncomplete
	ErrPrimaryNotVerified = errors.New("github token has not been verified yet")
	ErrAlreadyPersisted   = errors.New("credentials were already persisted in this run")
	errBadTransition      = errors.New("invalid credential state transition")
)

type field struct {
	value string
	state FieldState
}

// Session owns the credential fields of one bootstrap run. The GitHub token
// and username are verified together; the Vercel token is only accepted after
// them. A Session is not safe for concurrent use.
type Session struct {
	githubToken field
	username    field
	vercelToken field
	persisted   bool
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) BeginPrimary() error {
	if s.githubToken.state != StateUnset {
		return fmt.Errorf("%w: github token is %s", errBadTransition, s.githubToken.state)
	}
	s.githubToken.state = StatePending
	s.username.state = StatePending
	return nil
}

// AcceptPrimary stores the exchanged token and the username resolved from it.
func (s *Session) AcceptPrimary(token VerifiedToken) error {
	if s.githubToken.state != StatePending {
		return fmt.Errorf("%w: github token is %s", errBadTransition, s.githubToken.state)
	}
	if token.IsZero() || token.Identity() == nil || token.Identity().Username == "" {
		return fmt.Errorf("%w: github token has no resolved username", ErrIncomplete)
	}
	s.githubToken = field{value: token.Value(), state: StateVerified}
	s.username = field{value: token.Identity().Username, state: StateVerified}
	return nil
}

// ResetPrimary returns a failed primary exchange to unset.
func (s *Session) ResetPrimary() {
	if s.githubToken.state == StatePending {
		s.githubToken = field{}
		s.username = field{}
	}
}

func (s *Session) BeginSecondary() error {
	if s.githubToken.state != StateVerified {
		return ErrPrimaryNotVerified
	}
	if s.vercelToken.state != StateUnset {
		return fmt.Errorf("%w: vercel token is %s", errBadTransition, s.vercelToken.state)
	}
	s.vercelToken.state = StatePending
	return nil
}

func (s *Session) AcceptSecondary(token VerifiedToken) error {
	if s.vercelToken.state != StatePending {
		return fmt.Errorf("%w: vercel token is %s", errBadTransition, s.vercelToken.state)
	}
	if token.IsZero() {
		return fmt.Errorf("%w: vercel token is empty", ErrIncomplete)
	}
	s.vercelToken = field{value: token.Value(), state: StateVerified}
	return nil
}

// States reports the state of each field keyed by its persisted name.
func (s *Session) States() map[string]FieldState {
	return map[string]FieldState{
		credentials.KeyGitHubToken:    s.githubToken.state,
		credentials.KeyGitHubUsername: s.username.state,
		credentials.KeyVercelToken:    s.vercelToken.state,
	}
}

// Record returns the credential record once every field is verified.
func (s *Session) Record() (credentials.Record, error) {
	for key, state := range s.States() {
		if state != StateVerified {
			return credentials.Record{}, fmt.Errorf("%w: %s is %s", ErrIncomplete, key, state)
		}
	}
	return credentials.Record{
		GitHubToken:    s.githubToken.value,
		GitHubUsername: s.username.value,
		VercelToken:    s.vercelToken.value,
	}, nil
}

// Persist writes the record to store. It succeeds at most once per session.
func (s *Session) Persist(store credentials.Store) (credentials.Record, error) {
	if s.persisted {
		return credentials.Record{}, ErrAlreadyPersisted
	}
	record, err := s.Record()
	if err != nil {
		return credentials.Record{}, err
	}
	s.persisted = true
	if err := store.Persist(record); err != nil {
		return credentials.Record{}, fmt.Errorf("persist credentials to %s: %w", store.Location(), err)
	}
	return record, nil
}
