package osfilesystem

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystem_FileLifecycle(t *testing.T) {
	fs := New()
	name := filepath.Join(t.TempDir(), "debug", "frames", "stats.bin")

	require.NoError(t, fs.WriteFile(name, []byte{0x1a, 0x45, 0xdf, 0xa3}))

	ok, err := fs.Exists(name)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := fs.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1a, 0x45, 0xdf, 0xa3}, data)

	require.NoError(t, fs.Remove(name))
	ok, err = fs.Exists(name)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileSystem_MkdirAll(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, fs.MkdirAll(dir))
	require.NoError(t, fs.MkdirAll(dir), "second call is a no-op")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileSystem_Missing(t *testing.T) {
	fs := New()
	missing := filepath.Join(t.TempDir(), "missing.webm")

	ok, err := fs.Exists(missing)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = fs.ReadFile(missing)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = fs.OpenStream(missing)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	assert.Error(t, fs.Remove(missing))
}

func TestFileSystem_CreateStreamTruncates(t *testing.T) {
	fs := New()
	name := filepath.Join(t.TempDir(), "out", "clip.webm")
	require.NoError(t, fs.WriteFile(name, []byte("previous contents")))

	s, err := fs.CreateStream(name)
	require.NoError(t, err)
	_, err = s.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	r, err := fs.OpenStream(name)
	require.NoError(t, err)
	defer r.Close()

	size, err := r.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
