// Package memstream provides an in-memory ports.ByteStream.
package memstream

import (
	"errors"
	"io"

	"github.com/user/webmio/pkg/ports"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("memstream: stream closed")

// Stream is a growable, seekable byte buffer.
type Stream struct {
	buf    []byte
	pos    int64
	closed bool
}

// New creates an empty stream.
func New() *Stream {
	return &Stream{}
}

// FromBytes creates a stream positioned at the start of data. The slice is not copied.
func FromBytes(data []byte) *Stream {
	return &Stream{buf: data}
}

// Read reads from the current position.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if s.pos >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += int64(n)
	return n, nil
}

// Write writes at the current position, growing the buffer as needed.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		if end > int64(cap(s.buf)) {
			grown := make([]byte, end, 2*end)
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

// Seek sets the position.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("memstream: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memstream: negative position")
	}
	s.pos = abs
	return abs, nil
}

// Position returns the current offset.
func (s *Stream) Position() (int64, error) {
	return s.pos, nil
}

// Size returns the buffer length.
func (s *Stream) Size() (int64, error) {
	return int64(len(s.buf)), nil
}

// Close marks the stream closed. The contents stay available through Bytes.
func (s *Stream) Close() error {
	s.closed = true
	return nil
}

// Bytes returns the contents.
func (s *Stream) Bytes() []byte {
	return s.buf
}

var _ ports.ByteStream = (*Stream)(nil)
