package ports

import "io"

// ByteStream is an exclusively owned, seekable file handle.
type ByteStream interface {
	io.Reader
	io.Writer
	io.Seeker

	// Position returns the current offset.
	Position() (int64, error)

	// Size returns the current length of the stream.
	Size() (int64, error)

	// Close releases the handle.
	Close() error
}
