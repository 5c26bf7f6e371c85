package weather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/natefinch/atomic"
)

// FileStore is a single-slot cache file. Any Put replaces the slot, whatever
// the location; Get returns the slot and leaves location matching to the caller.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the cache file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, _ string) (Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, ErrCacheMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read weather cache: %w", err)
	}
	return decodeEntry(data)
}

func (s *FileStore) Put(_ context.Context, _ string, e Entry) error {
	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write weather cache: %w", err)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context, _ string) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove weather cache: %w", err)
	}
	return nil
}
