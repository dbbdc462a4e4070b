//go:build !vpx || !cgo

package vpx

import (
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Encoder is a placeholder when libvpx is not compiled in.
type Encoder struct{}

// New returns an encoder that always fails with ErrUnavailable.
func New() *Encoder {
	return &Encoder{}
}

// Available reports whether libvpx is linked in.
func Available() bool {
	return false
}

func (e *Encoder) Begin(cfg ports.VideoEncoderConfig) error {
	return ErrUnavailable
}

func (e *Encoder) Encode(img *media.Image, pts, duration int64) ([]media.Packet, error) {
	return nil, ErrUnavailable
}

func (e *Encoder) End() error {
	return nil
}

// Decoder is a placeholder when libvpx is not compiled in.
type Decoder struct{}

// NewDecoder returns a decoder that always fails with ErrUnavailable.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Begin(cfg ports.VideoDecoderConfig) error {
	return ErrUnavailable
}

func (d *Decoder) Decode(data []byte) ([]*media.Image, error) {
	return nil, ErrUnavailable
}

func (d *Decoder) End() {
}

var (
	_ ports.VideoEncoder = (*Encoder)(nil)
	_ ports.VideoDecoder = (*Decoder)(nil)
)
