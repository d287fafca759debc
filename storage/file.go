package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

type fileRecord struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// FileStore keeps one JSON file per key in a directory. It is the store the
// command line tool uses so a cart survives between invocations.
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates a store rooted at dir on fs. A nil fs uses the OS
// filesystem.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{fs: fs, dir: dir, now: time.Now}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// Get reads the value stored under key
func (f *FileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := afero.ReadFile(f.fs, f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	if !rec.ExpiresAt.IsZero() && !f.now().Before(rec.ExpiresAt) {
		_ = f.fs.Remove(f.path(key))
		return "", ErrNotFound
	}
	return rec.Value, nil
}

// Set writes value under key
func (f *FileStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	rec := fileRecord{Value: value}
	if ttl > 0 {
		rec.ExpiresAt = f.now().Add(ttl).UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := afero.WriteFile(f.fs, f.path(key), data, 0o600); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes the file for key
func (f *FileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fs.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Close does nothing
func (f *FileStore) Close() error {
	return nil
}
