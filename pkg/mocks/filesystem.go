package mocks

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/user/webmio/pkg/adapters/memstream"
	"github.com/user/webmio/pkg/ports"
)

// File system operations passed to FileSystem.FailFunc.
const (
	OpRead   = "read"
	OpWrite  = "write"
	OpMkdir  = "mkdir"
	OpStat   = "stat"
	OpRemove = "remove"
	OpOpen   = "open"
	OpCreate = "create"
)

// FileSystem is an in-memory ports.FileSystem. Every file is a
// memstream.Stream, so bytes written through CreateStream are visible to
// ReadFile and the reverse.
type FileSystem struct {
	mu    sync.Mutex
	files map[string]*memstream.Stream
	dirs  map[string]struct{}

	// FailFunc, when set, runs before every operation. A non-nil error is
	// returned in place of the operation's result.
	FailFunc func(op, name string) error
}

// NewFileSystem creates an empty FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string]*memstream.Stream),
		dirs:  make(map[string]struct{}),
	}
}

func (m *FileSystem) fail(op, name string) error {
	if m.FailFunc == nil {
		return nil
	}
	return m.FailFunc(op, name)
}

func notExist(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
}

func (m *FileSystem) ReadFile(name string) ([]byte, error) {
	if err := m.fail(OpRead, name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.files[path.Clean(name)]
	if !ok {
		return nil, notExist(OpRead, name)
	}
	return append([]byte(nil), s.Bytes()...), nil
}

func (m *FileSystem) WriteFile(name string, data []byte) error {
	if err := m.fail(OpWrite, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.Clean(name)] = memstream.FromBytes(append([]byte(nil), data...))
	return nil
}

func (m *FileSystem) MkdirAll(name string) error {
	if err := m.fail(OpMkdir, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for dir := path.Clean(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = struct{}{}
	}
	return nil
}

func (m *FileSystem) Exists(name string) (bool, error) {
	if err := m.fail(OpStat, name); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := path.Clean(name)
	_, isFile := m.files[key]
	_, isDir := m.dirs[key]
	return isFile || isDir, nil
}

func (m *FileSystem) Remove(name string) error {
	if err := m.fail(OpRemove, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := path.Clean(name)
	if _, ok := m.files[key]; ok {
		delete(m.files, key)
		return nil
	}
	if _, ok := m.dirs[key]; ok {
		delete(m.dirs, key)
		return nil
	}
	return notExist(OpRemove, name)
}

// OpenStream returns a reader over a snapshot of the file.
func (m *FileSystem) OpenStream(name string) (ports.ByteStream, error) {
	if err := m.fail(OpOpen, name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.files[path.Clean(name)]
	if !ok {
		return nil, notExist(OpOpen, name)
	}
	return memstream.FromBytes(append([]byte(nil), s.Bytes()...)), nil
}

// CreateStream replaces the file with an empty stream. Its contents stay
// readable after Close.
func (m *FileSystem) CreateStream(name string) (ports.ByteStream, error) {
	if err := m.fail(OpCreate, name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memstream.New()
	m.files[path.Clean(name)] = s
	return s, nil
}

// GetFile returns a copy of a file's contents.
func (m *FileSystem) GetFile(name string) ([]byte, bool) {
	data, err := m.ReadFile(name)
	return data, err == nil
}

// Files lists every file path in sorted order.
func (m *FileSystem) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FailOn returns a FailFunc that fails op on every path with err.
func FailOn(op string, err error) func(string, string) error {
	return func(got, name string) error {
		if got == op {
			return fmt.Errorf("%s %s: %w", op, name, err)
		}
		return nil
	}
}

var _ ports.FileSystem = (*FileSystem)(nil)
