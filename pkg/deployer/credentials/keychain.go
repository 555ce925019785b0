package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultKeychainService is the keychain service name records are filed under.
const DefaultKeychainService = "deployer"

// Keychain stores each record field as a separate keychain item.
type Keychain struct {
	service string
}

func NewKeychain(service string) *Keychain {
	if service == "" {
		service = DefaultKeychainService
	}
	return &Keychain{service: service}
}

func (k *Keychain) Persist(record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	for _, kv := range record.pairs() {
		if err := keyring.Set(k.service, kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to store %s in keychain: %w", kv[0], err)
		}
	}
	return nil
}

func (k *Keychain) Load() (Record, error) {
	values := make(map[string]string, 3)
	for _, key := range Keys() {
		value, err := keyring.Get(k.service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("failed to read %s from keychain: %w", key, err)
		}
		values[key] = value
	}
	if len(values) == 0 {
		return Record{}, ErrNotFound
	}
	return decode(values)
}

func (k *Keychain) Delete() error {
	for _, key := range Keys() {
		if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete %s from keychain: %w", key, err)
		}
	}
	return nil
}

func (k *Keychain) Kind() string {
	return KindKeychain
}

func (k *Keychain) Location() string {
	return "keychain service " + k.service
}
