//go:build !vorbis || !cgo

package vorbis

import (
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// Available reports whether libvorbis is linked in.
func Available() bool {
	return false
}

// Encoder is a placeholder when libvorbis is not compiled in.
type Encoder struct{}

// New returns an encoder that always fails with ErrUnavailable.
func New() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Begin(cfg ports.AudioEncoderConfig) (ports.AudioHeaders, error) {
	return ports.AudioHeaders{}, ErrUnavailable
}

func (e *Encoder) FrameSize() int { return 0 }

func (e *Encoder) Write(samples [][]float32) error { return ErrUnavailable }

func (e *Encoder) Next() (media.AudioPacket, bool, error) {
	return media.AudioPacket{}, false, ErrUnavailable
}

func (e *Encoder) Finish() error { return ErrUnavailable }

func (e *Encoder) End() error { return nil }

// Decoder is a placeholder when libvorbis is not compiled in.
type Decoder struct{}

// NewDecoder returns a decoder that always fails with ErrUnavailable.
func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Begin(cfg ports.AudioDecoderConfig) error {
	return ErrUnavailable
}

func (d *Decoder) Decode(data []byte) ([][]float32, error) {
	return nil, ErrUnavailable
}

func (d *Decoder) Reset() error { return ErrUnavailable }

func (d *Decoder) End() {}

var (
	_ ports.AudioEncoder = (*Encoder)(nil)
	_ ports.AudioDecoder = (*Decoder)(nil)
)
