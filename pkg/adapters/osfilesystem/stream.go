package osfilesystem

import (
	"io"
	"os"

	"github.com/user/webmio/pkg/ports"
)

// Stream is a ports.ByteStream over an os.File.
type Stream struct {
	f    *os.File
	swap bool
}

func (s *Stream) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s *Stream) Write(p []byte) (int, error) { return s.f.Write(p) }

// Seek uses the standard io.Seek* constants.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

// SeekHost seeks with a host-supplied mode. When the host's current and
// end constants are swapped, they are exchanged here and nowhere else.
func (s *Stream) SeekHost(offset int64, mode int) (int64, error) {
	return s.f.Seek(offset, HostWhence(mode, s.swap))
}

// HostWhence maps a host seek mode to an io.Seek* constant.
func HostWhence(mode int, swapped bool) int {
	if !swapped {
		return mode
	}
	switch mode {
	case io.SeekCurrent:
		return io.SeekEnd
	case io.SeekEnd:
		return io.SeekCurrent
	default:
		return mode
	}
}

// Position returns the current offset.
func (s *Stream) Position() (int64, error) {
	return s.f.Seek(0, io.SeekCurrent)
}

// Size returns the file length.
func (s *Stream) Size() (int64, error) {
	info, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the file.
func (s *Stream) Close() error {
	return s.f.Close()
}

var _ ports.ByteStream = (*Stream)(nil)
