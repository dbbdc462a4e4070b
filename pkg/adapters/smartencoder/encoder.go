// Package smartencoder selects the best available video and audio encoder
// for a codec, with fallback to the uncompressed codecs.
package smartencoder

import (
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/adapters/rawcodec"
	"github.com/user/webmio/pkg/adapters/vorbis"
	"github.com/user/webmio/pkg/adapters/vpx"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Backend represents the encoding backend used.
type Backend string

const (
	// BackendLibvpx represents libvpx for VP8 and VP9.
	BackendLibvpx Backend = "libvpx"
	// BackendLibvorbis represents libvorbis.
	BackendLibvorbis Backend = "libvorbis"
	// BackendRaw represents the uncompressed codecs.
	BackendRaw Backend = "raw"
)

// Info contains information about the selected encoder.
type Info struct {
	// Codec is the container codec ID actually produced.
	Codec string
	// Backend is the encoding backend being used.
	Backend Backend
	// RequestedCodec is the codec that was originally requested.
	RequestedCodec string
	// FallbackUsed indicates whether a fallback occurred.
	FallbackUsed bool
}

// Options configures the smart encoder behavior.
type Options struct {
	// AllowFallback enables fallback to the uncompressed codecs when the
	// requested library is not compiled in.
	AllowFallback bool
	// Lookahead is handed to the uncompressed video encoder.
	Lookahead int
	// BlockSize is handed to the PCM audio encoder.
	BlockSize int
	// Logger is used to log fallback warnings.
	Logger ports.Logger
}

var (
	// ErrNoEncoderAvailable is returned when no encoder is available.
	ErrNoEncoderAvailable = errors.New("smartencoder: no encoder available")
	// ErrUnsupportedCodec is returned for a codec no backend can produce.
	ErrUnsupportedCodec = errors.New("smartencoder: unsupported codec")
)

// NewVideo creates a video encoder for codecID.
//
// The selection flow for VP8 and VP9:
//  1. Use libvpx when compiled in
//  2. If AllowFallback is true, fall back to uncompressed video
func NewVideo(codecID string, opts Options) (ports.VideoEncoder, Info, error) {
	info := Info{RequestedCodec: codecID}

	switch codecID {
	case media.CodecVP8, media.CodecVP9:
		if vpx.Available() {
			info.Codec = codecID
			info.Backend = BackendLibvpx
			return vpx.New(), info, nil
		}
		if !opts.AllowFallback {
			return nil, Info{}, fmt.Errorf("%w: %s", ErrNoEncoderAvailable, codecID)
		}
		if opts.Logger != nil {
			opts.Logger.Warn("%s encoder not available, falling back to %s", codecID, media.CodecUncompressed)
		}
		info.FallbackUsed = true
		fallthrough
	case media.CodecUncompressed:
		info.Codec = media.CodecUncompressed
		info.Backend = BackendRaw
		return rawcodec.NewVideoEncoder(lookahead(opts)), info, nil
	default:
		return nil, Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codecID)
	}
}

// NewAudio creates an audio encoder for codecID, falling back to PCM float
// when libvorbis is missing and AllowFallback is set.
func NewAudio(codecID string, opts Options) (ports.AudioEncoder, Info, error) {
	info := Info{RequestedCodec: codecID}

	switch codecID {
	case media.CodecVorbis:
		if vorbis.Available() {
			info.Codec = codecID
			info.Backend = BackendLibvorbis
			return vorbis.New(), info, nil
		}
		if !opts.AllowFallback {
			return nil, Info{}, fmt.Errorf("%w: %s", ErrNoEncoderAvailable, codecID)
		}
		if opts.Logger != nil {
			opts.Logger.Warn("%s encoder not available, falling back to %s", codecID, media.CodecPCMFloat)
		}
		info.FallbackUsed = true
		fallthrough
	case media.CodecPCMFloat:
		info.Codec = media.CodecPCMFloat
		info.Backend = BackendRaw
		return rawcodec.NewAudioEncoder(opts.BlockSize), info, nil
	default:
		return nil, Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codecID)
	}
}

func lookahead(opts Options) int {
	if opts.Lookahead == 0 {
		return rawcodec.DefaultLookahead
	}
	return opts.Lookahead
}

// IsVPXAvailable reports whether libvpx is compiled in.
func IsVPXAvailable() bool {
	return vpx.Available()
}

// IsVorbisAvailable reports whether libvorbis is compiled in.
func IsVorbisAvailable() bool {
	return vorbis.Available()
}
