package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Skyxo/cours-de-la-biere/internal/models"
)

// StateFile persists a JSON snapshot of process state (market context,
// happy-hour windows, timer anchor, open session) for crash recovery.
// Saves rewrite the whole file through a temp-file rename.
type StateFile struct {
	mu   sync.Mutex
	path string
}

// NewStateFile creates a state file handle at path; the file itself is
// created on first Save.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Save marshals v and atomically replaces the file contents.
func (f *StateFile) Save(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal state: %v", models.ErrPersistence, err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("%w: create state directory: %v", models.ErrPersistence, err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write state: %v", models.ErrPersistence, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("%w: replace state: %v", models.ErrPersistence, err)
	}
	return nil
}

// Load unmarshals the file into v. The boolean reports whether a
// snapshot existed.
func (f *StateFile) Load(v any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read state: %v", models.ErrPersistence, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode state: %v", models.ErrPersistence, err)
	}
	return true, nil
}

// Remove deletes the snapshot; missing files are not an error.
func (f *StateFile) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove state: %v", models.ErrPersistence, err)
	}
	return nil
}
