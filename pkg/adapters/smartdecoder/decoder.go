// Package smartdecoder selects a decoder for a track's codec ID.
package smartdecoder

import (
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/adapters/rawcodec"
	"github.com/user/webmio/pkg/adapters/vorbis"
	"github.com/user/webmio/pkg/adapters/vp8dec"
	"github.com/user/webmio/pkg/adapters/vpx"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendLibvpx represents libvpx for VP8 and VP9.
	BackendLibvpx Backend = "libvpx"
	// BackendPureGo represents the key-frame-only Go VP8 decoder.
	BackendPureGo Backend = "x/image/vp8"
	// BackendLibvorbis represents libvorbis.
	BackendLibvorbis Backend = "libvorbis"
	// BackendRaw represents the uncompressed codecs.
	BackendRaw Backend = "raw"
)

// Info contains information about the selected decoder.
type Info struct {
	// Codec is the container codec ID.
	Codec string
	// Backend is the decoding backend being used.
	Backend Backend
}

var (
	// ErrUnsupportedCodec is returned when the codec is not supported.
	ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")
	// ErrNoDecoderAvailable is returned when no decoder is compiled in for the codec.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// NewVideo creates a video decoder for codecID.
//
// The selection flow:
//   - VP8: libvpx, then the Go key frame decoder
//   - VP9: libvpx only
//   - uncompressed: raw
func NewVideo(codecID string) (ports.VideoDecoder, Info, error) {
	switch codecID {
	case media.CodecVP8, media.CodecVP9:
		if vpx.Available() {
			return vpx.NewDecoder(), Info{Codec: codecID, Backend: BackendLibvpx}, nil
		}
		if codecID == media.CodecVP8 {
			return vp8dec.New(), Info{Codec: codecID, Backend: BackendPureGo}, nil
		}
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNoDecoderAvailable, codecID)
	case media.CodecUncompressed:
		return rawcodec.NewVideoDecoder(), Info{Codec: codecID, Backend: BackendRaw}, nil
	default:
		return nil, Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codecID)
	}
}

// NewAudio creates an audio decoder for codecID.
func NewAudio(codecID string) (ports.AudioDecoder, Info, error) {
	switch codecID {
	case media.CodecVorbis:
		if vorbis.Available() {
			return vorbis.NewDecoder(), Info{Codec: codecID, Backend: BackendLibvorbis}, nil
		}
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNoDecoderAvailable, codecID)
	case media.CodecPCMFloat:
		return rawcodec.NewAudioDecoder(), Info{Codec: codecID, Backend: BackendRaw}, nil
	default:
		return nil, Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, codecID)
	}
}

// CanDecodeVideo reports whether a decoder for codecID is available.
func CanDecodeVideo(codecID string) bool {
	switch codecID {
	case media.CodecVP8, media.CodecUncompressed:
		return true
	case media.CodecVP9:
		return vpx.Available()
	}
	return false
}

// KeyframesOnly reports whether the available decoder for codecID can
// decode key frames but not the frames predicted from them.
func KeyframesOnly(codecID string) bool {
	return codecID == media.CodecVP8 && !vpx.Available()
}

// CanDecodeAudio reports whether a decoder for codecID is available.
func CanDecodeAudio(codecID string) bool {
	switch codecID {
	case media.CodecPCMFloat:
		return true
	case media.CodecVorbis:
		return vorbis.Available()
	}
	return false
}
