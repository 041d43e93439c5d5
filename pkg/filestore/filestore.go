// Package filestore persists uploaded file bytes under a configured
// directory. Stored names are generated, never derived from client input, so
// collisions are impossible by construction and path traversal never reaches
// the filesystem.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type FileStore struct {
	dir string
}

// New ensures the upload directory exists and returns a store over it.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Dir() string {
	return f.dir
}

// SavedFile is the handle to a persisted file. Path is what document records
// reference.
type SavedFile struct {
	StoredName string
	Path       string
	Size       int64
}

// Save streams r to disk under a random name that keeps the original
// extension.
func (f *FileStore) Save(originalName string, r io.Reader) (SavedFile, error) {
	name := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(f.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return SavedFile{}, fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := io.Copy(dst, r)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return SavedFile{}, fmt.Errorf("writing %s: %w", path, err)
	}
	return SavedFile{StoredName: name, Path: path, Size: n}, nil
}

// Remove deletes a stored file. A file that is already gone is not an error:
// compensation paths may race with each other.
func (f *FileStore) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
