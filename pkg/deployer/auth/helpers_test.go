package auth

import (
	"context"
	"sync"
)

// fakeVerifier accepts the tokens in valid and counts every call.
type fakeVerifier struct {
	mu       sync.Mutex
	valid    map[string]string
	provider string
	calls    []string
}

func newFakeVerifier(provider string, valid map[string]string) *fakeVerifier {
	return &fakeVerifier{provider: provider, valid: valid}
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token)
	user, ok := f.valid[token]
	if !ok {
		return nil, false
	}
	return &Identity{Provider: f.provider, Username: user}, true
}

func (f *fakeVerifier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeKiller struct {
	mu    sync.Mutex
	kills int
	err   error
}

func (k *fakeKiller) Kill(context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kills++
	return k.err
}

func (k *fakeKiller) Kills() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.kills
}

func verified(token, username string) VerifiedToken {
	return VerifiedToken{value: token, identity: &Identity{Username: username}}
}
