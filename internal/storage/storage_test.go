package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFSWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOSFS()
	target := filepath.Join(dir, "nested", "abc.css")

	require.NoError(t, WriteAtomic(fsys, target, []byte("a{}\n")))

	data, err := fsys.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a{}\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file must not remain")

	info, err := fsys.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.True(t, fsys.Exists(target))
}

func TestOSFSNotFound(t *testing.T) {
	fsys := NewOSFS()
	_, err := fsys.ReadFile(filepath.Join(t.TempDir(), "missing.css"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, fsys.Remove(filepath.Join(t.TempDir(), "missing.css")))
}

func TestMemFSCounts(t *testing.T) {
	fsys := NewMemFS()
	fsys.Seed("/src/a.css", []byte("a{}"))

	_, err := fsys.ReadFile("/src/a.css")
	require.NoError(t, err)
	require.NoError(t, WriteAtomic(fsys, "/build/x.css", []byte("a{}")))

	calls := fsys.Calls()
	assert.Equal(t, 1, calls.ReadFile)
	assert.Equal(t, 1, calls.WriteFile)
	assert.Equal(t, 1, calls.Rename)
	assert.ElementsMatch(t, []string{"/src/a.css", "/build/x.css"}, fsys.Paths())

	_, err = fsys.ReadFile("/src/missing.css")
	assert.True(t, IsNotFound(err))
}

func TestMemFSTouch(t *testing.T) {
	fsys := NewMemFS()
	fsys.Seed("/a", []byte("x"))
	ts := time.Unix(1700000000, 0)
	fsys.Touch("/a", ts)
	info, err := fsys.Stat("/a")
	require.NoError(t, err)
	assert.True(t, info.ModTime.Equal(ts))
}

func TestTempName(t *testing.T) {
	name := TempName("/build/abc.css")
	assert.Equal(t, "/build", filepath.Dir(name))
	assert.True(t, strings.HasPrefix(filepath.Base(name), ".abc.css.tmp-"))
	assert.NotEqual(t, name, TempName("/build/abc.css"))
}
