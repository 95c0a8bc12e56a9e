package kvstore

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// File is a KV that keeps one file per key under a directory. Writes go through
// a temp file and a rename so a crash never leaves a half-written slot.
type File struct {
	fs  afero.Fs
	dir string
}

// NewFile creates a File store rooted at dir on fs.
func NewFile(fs afero.Fs, dir string) (*File, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir %s: %w", dir, err)
	}
	return &File{fs: fs, dir: dir}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

// Get returns the value stored under key.
func (f *File) Get(key string) (string, bool, error) {
	data, err := afero.ReadFile(f.fs, f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set atomically replaces the value stored under key.
func (f *File) Set(key, value string) error {
	tmp, err := afero.TempFile(f.fs, f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer f.fs.Remove(tmpPath)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := f.fs.Rename(tmpPath, f.path(key)); err != nil {
		return fmt.Errorf("renaming temp file for %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (f *File) Remove(key string) error {
	err := f.fs.Remove(f.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}
