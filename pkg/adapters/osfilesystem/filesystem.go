// Package osfilesystem provides a filesystem implementation using the os package.
package osfilesystem

import (
	"os"
	"path/filepath"

	"github.com/user/webmio/pkg/ports"
)

// FileSystem implements ports.FileSystem using the os package.
type FileSystem struct {
	swapSeekModes bool
}

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithSwappedSeekModes makes streams exchange the current and end seek modes
// in SeekHost, for hosts whose constants are inverted.
func WithSwappedSeekModes() Option {
	return func(fs *FileSystem) {
		fs.swapSeekModes = true
	}
}

// New creates a new FileSystem.
func New(opts ...Option) *FileSystem {
	fs := &FileSystem{}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// ReadFile reads the entire contents of a file.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating it if necessary.
func (fs *FileSystem) WriteFile(path string, data []byte) error {
	if err := fs.ensureParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// MkdirAll creates a directory and all parent directories.
func (fs *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file or empty directory.
func (fs *FileSystem) Remove(path string) error {
	return os.Remove(path)
}

// OpenStream opens an existing file for reading and seeking.
func (fs *FileSystem) OpenStream(path string) (ports.ByteStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Stream{f: f, swap: fs.swapSeekModes}, nil
}

// CreateStream creates or truncates a file for writing and seeking.
func (fs *FileSystem) CreateStream(path string) (ports.ByteStream, error) {
	if err := fs.ensureParent(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &Stream{f: f, swap: fs.swapSeekModes}, nil
}

func (fs *FileSystem) ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// Ensure FileSystem implements ports.FileSystem
var _ ports.FileSystem = (*FileSystem)(nil)
