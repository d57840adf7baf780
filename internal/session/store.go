// Package session owns the durable checkpoint for one execution window:
// which tasks are done, deferred, or failed, how much of the token budget
// is spent, and where the next session should resume. Every mutation is
// persisted before the manager reports success, so a crash loses at most
// the in-flight task.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/nightshift-run/nightshift/pkg/shiftlib"
)

// Store is the durable checkpoint repository: one JSON document, read on
// start, overwritten on every mutation.
type Store interface {
	// Load returns the persisted checkpoint, or (nil, nil) when no
	// checkpoint has ever been written.
	Load() (*shiftlib.Checkpoint, error)

	// Save overwrites the checkpoint document. Save failures are fatal to
	// the running session, since a lost resume pointer breaks the core's
	// only durability guarantee.
	Save(c *shiftlib.Checkpoint) error
}

// FileStore persists the checkpoint as a JSON file. Writes go to a temp
// file first and are renamed into place so a crash mid-write never leaves
// a truncated checkpoint.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore creates a checkpoint store at path on the real filesystem.
func NewFileStore(path string) *FileStore {
	return NewFileStoreFS(afero.NewOsFs(), path)
}

// NewFileStoreFS creates a checkpoint store on the given filesystem.
func NewFileStoreFS(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Load reads and decodes the checkpoint document.
func (s *FileStore) Load() (*shiftlib.Checkpoint, error) {
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var cp shiftlib.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

// Save writes the checkpoint document atomically.
func (s *FileStore) Save(c *shiftlib.Checkpoint) error {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
