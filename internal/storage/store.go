// Package storage is the filesystem boundary of the asset pipeline: reading
// sources, writing build output and publishing it atomically.
package storage

import (
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FS is the filesystem collaborator used by the builder. Implementations must
// be safe for concurrent use.
type FS interface {
	// ReadFile returns the contents of path. Missing files yield an error
	// satisfying IsNotFound.
	ReadFile(path string) ([]byte, error)

	// Stat returns size and modification time for path.
	Stat(path string) (FileInfo, error)

	// Exists reports whether path exists.
	Exists(path string) bool

	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error

	// WriteFile writes data to path, replacing any existing file. It is not
	// atomic; use WriteAtomic for published output.
	WriteFile(path string, data []byte) error

	// Rename moves oldPath to newPath, replacing newPath.
	Rename(oldPath, newPath string) error

	// Remove deletes path. Removing a missing file is not an error.
	Remove(path string) error
}

// FileInfo is the subset of file metadata the pipeline depends on.
type FileInfo struct {
	Size    int64
	ModTime time.Time
}

// IsNotFound reports whether err means the file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// TempName returns a hidden sibling path for staging writes to path.
func TempName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".tmp-"+uuid.NewString())
}

// WriteAtomic writes data to a temporary sibling and renames it over path,
// so readers observe either the old file or the complete new one.
func WriteAtomic(fsys FS, path string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := TempName(path)
	if err := fsys.WriteFile(tmp, data); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}
