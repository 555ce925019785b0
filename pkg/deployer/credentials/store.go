package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Store persists a credential record.
type Store interface {
	// Persist writes all three fields, replacing any previous record.
	Persist(record Record) error
	// Load returns the stored record or ErrNotFound.
	Load() (Record, error)
	// Delete removes the stored record. Deleting nothing is not an error.
	Delete() error
	// Kind names the backend ("file" or "keychain").
	Kind() string
	// Location describes where the record lives.
	Location() string
}

// Storage kinds.
const (
	KindFile     = "file"
	KindKeychain = "keychain"
)

// NewStore returns the store for kind. path is used by the file backend.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "", KindFile:
		return NewEnvFile(path), nil
	case KindKeychain:
		return NewKeychain(DefaultKeychainService), nil
	default:
		return nil, fmt.Errorf("unknown token storage %q", kind)
	}
}

// Resolve loads the stored record and overlays GITHUB_TOKEN, GITHUB_USERNAME
// and VERCEL_TOKEN from environ (os.Environ form). A missing record is not
// an error when the environment supplies values.
func Resolve(store Store, environ []string) (Record, error) {
	values := map[string]string{}
	stored, err := store.Load()
	notFound := errors.Is(err, ErrNotFound)
	switch {
	case err == nil:
		values = stored.Values()
	case !notFound:
		return Record{}, err
	}

	fromEnv := 0
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		for _, k := range Keys() {
			if key == k {
				values[k] = value
				fromEnv++
			}
		}
	}
	if notFound && fromEnv == 0 {
		return Record{}, ErrNotFound
	}
	return decode(values)
}

func decode(values map[string]string) (Record, error) {
	var record Record
	if err := env.ParseWithOptions(&record, env.Options{Environment: values}); err != nil {
		return Record{}, fmt.Errorf("decode credentials: %w", err)
	}
	return record, nil
}
