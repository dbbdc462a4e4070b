package ports

import (
	"github.com/user/webmio/pkg/media"
)

// VideoDecoderConfig configures a decoder for one request.
type VideoDecoderConfig struct {
	Codec  string
	Width  int
	Height int

	// Threads is the hardware concurrency handed to the codec.
	Threads int
	// FrameThreading enables frame-parallel decoding where supported.
	FrameThreading bool
}

// VideoDecoder abstracts a block-based video decoder.
type VideoDecoder interface {
	// Begin initializes the decoder.
	Begin(cfg VideoDecoderConfig) error

	// Decode feeds one compressed frame and returns the pictures it produced.
	Decode(data []byte) ([]*media.Image, error)

	// End releases decoder resources.
	End()
}

// AudioDecoderConfig configures an audio decoder.
type AudioDecoderConfig struct {
	Codec      string
	SampleRate int
	Channels   int
	Headers    AudioHeaders
}

// AudioDecoder abstracts a transform audio decoder.
type AudioDecoder interface {
	// Begin initializes the decoder from its setup packets.
	Begin(cfg AudioDecoderConfig) error

	// Decode feeds one compressed block and returns planar samples.
	Decode(data []byte) ([][]float32, error)

	// Reset discards decoder state after a seek.
	Reset() error

	// End releases decoder resources.
	End()
}
