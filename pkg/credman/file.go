package credman

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const keyFileMode = 0600

// FileStore keeps API keys in per-provider files with 0600 permissions.
// It is the fallback for headless machines where no keyring service runs.
type FileStore struct {
	configDir string
}

// NewFileStore creates a store rooted at configDir. The directory is
// created on first write.
func NewFileStore(configDir string) *FileStore {
	return &FileStore{configDir: configDir}
}

func (f *FileStore) keyPath(provider string) string {
	return filepath.Join(f.configDir, provider+".key")
}

// Set writes the key atomically: temp file, chmod, rename. An interrupted
// write must never leave a truncated key behind.
func (f *FileStore) Set(provider, key string) error {
	if err := os.MkdirAll(f.configDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(f.configDir, "."+provider+".key.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(key); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, keyFileMode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, f.keyPath(provider)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename key file: %w", err)
	}
	return nil
}

// Get reads the stored key for a provider.
func (f *FileStore) Get(provider string) (string, error) {
	data, err := os.ReadFile(f.keyPath(provider))
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("empty key file for %s", provider)
	}
	return key, nil
}

// Delete removes the key file for a provider.
func (f *FileStore) Delete(provider string) error {
	return os.Remove(f.keyPath(provider))
}
