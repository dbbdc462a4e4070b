// Package rawcodec provides uncompressed video and PCM float audio codecs.
// They carry no compression but follow the same begin/submit/drain protocol
// as the real codecs, including encoder lookahead and two-pass statistics.
package rawcodec

import "errors"

var (
	// ErrNotInitialized is returned when a codec is used before Begin.
	ErrNotInitialized = errors.New("rawcodec: codec not initialized")

	// ErrCodecMismatch is returned when Begin is asked for another codec.
	ErrCodecMismatch = errors.New("rawcodec: codec not handled")

	// ErrBadSize is returned for a frame whose dimensions or payload length are wrong.
	ErrBadSize = errors.New("rawcodec: frame size mismatch")

	// ErrBadStats is returned when the final pass gets unusable statistics.
	ErrBadStats = errors.New("rawcodec: invalid first pass statistics")

	// ErrBadHeaders is returned when the audio setup packets cannot be parsed.
	ErrBadHeaders = errors.New("rawcodec: invalid audio headers")
)
