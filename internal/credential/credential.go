// Package credential keeps secrets such as the webhook token in the OS keyring.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name all entries are stored under.
const Service = "tasknotifier"

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Keyring reads and writes named secrets.
type Keyring struct {
	Service string
}

// NewKeyring returns a keyring scoped to the tasknotifier service.
func NewKeyring() *Keyring {
	return &Keyring{Service: Service}
}

// Get returns the secret stored under key. A missing entry returns "" and no
// error.
func (k *Keyring) Get(key string) (string, error) {
	secret, err := keyringGet(k.Service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s from keyring: %w", key, err)
	}
	return secret, nil
}

// Set stores secret under key.
func (k *Keyring) Set(key, secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("refusing to store an empty %s", key)
	}
	if err := keyringSet(k.Service, key, secret); err != nil {
		return fmt.Errorf("writing %s to keyring: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing entry is not an error.
func (k *Keyring) Delete(key string) error {
	if err := keyringDelete(k.Service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting %s from keyring: %w", key, err)
	}
	return nil
}
