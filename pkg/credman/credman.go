// Package credman stores backend API keys in the operating system's native
// keyring service, with an environment-variable override and a file-based
// fallback for headless machines without a keyring daemon.
package credman

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "nightshift"

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Manager resolves API keys per provider. Resolution order on Get:
// environment variable, OS keyring, file fallback.
type Manager struct {
	fallback *FileStore
}

// NewManager creates a manager with a file fallback rooted at configDir.
// Empty configDir disables the fallback.
func NewManager(configDir string) *Manager {
	m := &Manager{}
	if configDir != "" {
		m.fallback = NewFileStore(configDir)
	}
	return m
}

// envVar maps a provider name to its conventional environment variable,
// e.g. "openai" to OPENAI_API_KEY.
func envVar(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// Get returns the API key for a provider. The environment wins so one-off
// runs can override whatever is stored.
func (m *Manager) Get(provider string) (string, error) {
	if v := os.Getenv(envVar(provider)); v != "" {
		return v, nil
	}
	key, err := keyringGet(serviceName, provider)
	if err == nil {
		return key, nil
	}
	if m.fallback != nil {
		if key, ferr := m.fallback.Get(provider); ferr == nil {
			return key, nil
		}
	}
	return "", fmt.Errorf("no api key for %s: set %s or run `nightshift key set %s`",
		provider, envVar(provider), provider)
}

// Set stores the API key in the keyring, falling back to the file store
// when no keyring service is available.
func (m *Manager) Set(provider, key string) error {
	err := keyringSet(serviceName, provider, key)
	if err == nil {
		return nil
	}
	if m.fallback != nil {
		return m.fallback.Set(provider, key)
	}
	return fmt.Errorf("store api key for %s: %w", provider, err)
}

// Delete removes the stored key from the keyring and the fallback store.
func (m *Manager) Delete(provider string) error {
	kerr := keyringDelete(serviceName, provider)
	var ferr error
	if m.fallback != nil {
		ferr = m.fallback.Delete(provider)
	}
	if kerr != nil && ferr != nil {
		return fmt.Errorf("delete api key for %s: %w", provider, kerr)
	}
	return nil
}
