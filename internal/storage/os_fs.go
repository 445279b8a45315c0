package storage

import (
	"errors"
	"io/fs"
	"os"
)

// OSFS implements FS on the host filesystem.
type OSFS struct {
	DirMode  os.FileMode
	FileMode os.FileMode
}

// NewOSFS returns an OSFS with 0750 directories and 0644 files. Published
// assets are served to browsers, so they stay world readable.
func NewOSFS() *OSFS {
	return &OSFS{DirMode: 0o750, FileMode: 0o644}
}

func (o *OSFS) ReadFile(path string) ([]byte, error) {
	// #nosec G304 - paths come from registered blueprints and configured directories
	return os.ReadFile(path)
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (o *OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (o *OSFS) MkdirAll(path string) error {
	return os.MkdirAll(path, o.DirMode)
}

func (o *OSFS) WriteFile(path string, data []byte) error {
	// #nosec G306 - public assets must be readable by the web server
	return os.WriteFile(path, data, o.FileMode)
}

func (o *OSFS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (o *OSFS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
