package storage

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// MemFS is an in-memory FS for tests. It counts calls so tests can assert
// how many physical writes a build performed.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]memFile
	dirs  map[string]bool
	calls MemCalls
	now   func() time.Time
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// MemCalls tracks method invocations for test verification.
type MemCalls struct {
	ReadFile  int
	WriteFile int
	Rename    int
	Remove    int
	MkdirAll  int
}

// NewMemFS creates an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]memFile),
		dirs:  make(map[string]bool),
		now:   time.Now,
	}
}

// Seed stores a file without counting it as a write.
func (m *MemFS) Seed(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = memFile{data: append([]byte(nil), data...), modTime: m.now()}
}

// Touch sets the modification time of an existing file.
func (m *MemFS) Touch(path string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := filepath.Clean(path)
	if f, ok := m.files[p]; ok {
		f.modTime = t
		m.files[p] = f
	}
}

// Calls returns a snapshot of the call counters.
func (m *MemFS) Calls() MemCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Paths lists every stored file.
func (m *MemFS) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	return out
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.ReadFile++
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, notExist("open", path)
	}
	return append([]byte(nil), f.data...), nil
}

func (m *MemFS) Stat(path string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return FileInfo{}, notExist("stat", path)
	}
	return FileInfo{Size: int64(len(f.data)), ModTime: f.modTime}, nil
}

func (m *MemFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := filepath.Clean(path)
	_, ok := m.files[p]
	return ok || m.dirs[p]
}

func (m *MemFS) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.MkdirAll++
	m.dirs[filepath.Clean(path)] = true
	return nil
}

func (m *MemFS) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.WriteFile++
	m.files[filepath.Clean(path)] = memFile{data: append([]byte(nil), data...), modTime: m.now()}
	return nil
}

func (m *MemFS) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Rename++
	src := filepath.Clean(oldPath)
	f, ok := m.files[src]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	delete(m.files, src)
	m.files[filepath.Clean(newPath)] = f
	return nil
}

func (m *MemFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Remove++
	delete(m.files, filepath.Clean(path))
	return nil
}
