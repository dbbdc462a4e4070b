// Package vp8dec is a pure Go VP8 decoder for builds without libvpx.
// It decodes key frames only and rejects inter frames with ErrInterFrame.
package vp8dec

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/vp8"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

var (
	// ErrNotInitialized is returned when Decode is called before Begin.
	ErrNotInitialized = errors.New("vp8dec: decoder not initialized")

	// ErrInterFrame is returned for a frame predicted from earlier frames.
	ErrInterFrame = errors.New("vp8dec: inter frames need libvpx")
)

// Decoder implements ports.VideoDecoder with golang.org/x/image/vp8.
type Decoder struct {
	dec   *vp8.Decoder
	begun bool
}

// New creates a decoder.
func New() *Decoder {
	return &Decoder{}
}

// Begin initializes the decoder. Only VP8 is accepted.
func (d *Decoder) Begin(cfg ports.VideoDecoderConfig) error {
	if cfg.Codec != media.CodecVP8 {
		return fmt.Errorf("vp8dec: codec %s not handled", cfg.Codec)
	}
	d.dec = vp8.NewDecoder()
	d.begun = true
	return nil
}

// IsKeyframe reports whether a VP8 frame is a key frame.
func IsKeyframe(data []byte) bool {
	return len(data) > 0 && data[0]&1 == 0
}

// Decode returns the picture for one frame.
func (d *Decoder) Decode(data []byte) ([]*media.Image, error) {
	if !d.begun {
		return nil, ErrNotInitialized
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("vp8dec: empty frame")
	}

	if !IsKeyframe(data) {
		return nil, ErrInterFrame
	}

	d.dec.Init(bytes.NewReader(data), len(data))
	if _, err := d.dec.DecodeFrameHeader(); err != nil {
		return nil, fmt.Errorf("vp8dec: frame header: %w", err)
	}
	ycc, err := d.dec.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("vp8dec: frame: %w", err)
	}

	return []*media.Image{FromYCbCr(ycc)}, nil
}

// End releases decoder resources.
func (d *Decoder) End() {
	d.dec = nil
	d.begun = false
}

// FromYCbCr copies a 4:2:0 picture into a tightly packed Image.
func FromYCbCr(src *image.YCbCr) *media.Image {
	b := src.Rect
	w, h := b.Dx(), b.Dy()
	img := media.NewImage(w, h)
	cw, ch := media.ChromaSize(w, h)

	for y := 0; y < h; y++ {
		off := src.YOffset(b.Min.X, b.Min.Y+y)
		copy(img.Y[y*w:(y+1)*w], src.Y[off:off+w])
	}
	for y := 0; y < ch; y++ {
		off := src.COffset(b.Min.X, b.Min.Y+2*y)
		copy(img.U[y*cw:(y+1)*cw], src.Cb[off:off+cw])
		copy(img.V[y*cw:(y+1)*cw], src.Cr[off:off+cw])
	}
	return img
}

var _ ports.VideoDecoder = (*Decoder)(nil)
