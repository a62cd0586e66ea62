package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"keymint/internal/license"
)

// FileStore persists the record list as a pretty-printed JSON array, the
// layout the legacy issuing scripts read and write. A single mutex guards the
// whole load-mutate-save cycle; writes go to a temp file in the same
// directory and are renamed into place so a crash never leaves a truncated
// store behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at path. The file is created lazily
// on first write; a missing file loads as an empty list.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// LoadAll reads the record list fresh from disk.
func (s *FileStore) LoadAll(ctx context.Context) ([]license.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update runs fn under the store mutex and rewrites the file when fn reports
// a change.
func (s *FileStore) Update(ctx context.Context, fn license.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	updated, dirty, err := fn(records)
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	return s.save(updated)
}

func (s *FileStore) load() ([]license.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []license.Record{}, nil
		}
		return nil, fmt.Errorf("failed to read license store %s: %w", s.path, err)
	}

	var records []license.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("license store %s is corrupt: %w", s.path, err)
	}
	if records == nil {
		records = []license.Record{}
	}
	return records, nil
}

func (s *FileStore) save(records []license.Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode license store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".licenses-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write license store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close license store: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace license store: %w", err)
	}
	return nil
}
