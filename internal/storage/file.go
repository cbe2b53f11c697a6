package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all entries in one JSON document on disk. The document is
// loaded once and rewritten atomically (temp file + rename) on every
// mutation, so it is meant for a single process.
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries map[string][]byte
}

// NewFileStore opens the JSON store at path, creating parent directories.
// A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	fsStore := &FileStore{path: path, entries: make(map[string][]byte)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fsStore, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return fsStore, nil
	}
	if err := json.Unmarshal(data, &fsStore.entries); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}
	return fsStore, nil
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[key]
	return cloneBytes(v), ok, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.entries[key]
	f.entries[key] = cloneBytes(value)
	if err := f.flush(); err != nil {
		if had {
			f.entries[key] = prev
		} else {
			delete(f.entries, key)
		}
		return &OpError{Backend: BackendFile, Op: "set", Key: key, Err: err}
	}
	return nil
}

func (f *FileStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.entries[key]
	if !had {
		return nil
	}
	delete(f.entries, key)
	if err := f.flush(); err != nil {
		f.entries[key] = prev
		return &OpError{Backend: BackendFile, Op: "remove", Key: key, Err: err}
	}
	return nil
}

// Path returns the backing file path
func (f *FileStore) Path() string {
	return f.path
}

// flush writes entries to a temp file and renames it over the store file.
// Callers hold f.mu.
func (f *FileStore) flush() error {
	data, err := json.Marshal(f.entries)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".repograph-store-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
