package vp8dec

import (
	"errors"
	"image"
	"testing"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

func TestIsKeyframe(t *testing.T) {
	if !IsKeyframe([]byte{0x10, 0x02}) {
		t.Error("expected even first byte to be a key frame")
	}
	if IsKeyframe([]byte{0x11}) {
		t.Error("expected odd first byte to be an inter frame")
	}
	if IsKeyframe(nil) {
		t.Error("expected empty data not to be a key frame")
	}
}

func TestDecoder_RejectsInterFrames(t *testing.T) {
	d := New()
	if err := d.Begin(ports.VideoDecoderConfig{Codec: media.CodecVP8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.End()

	imgs, err := d.Decode([]byte{0x01, 0x00, 0x00})
	if !errors.Is(err, ErrInterFrame) {
		t.Errorf("expected ErrInterFrame, got %v", err)
	}
	if imgs != nil {
		t.Errorf("expected no picture for an inter frame, got %d", len(imgs))
	}
}

func TestDecoder_RejectsOtherCodecs(t *testing.T) {
	if err := New().Begin(ports.VideoDecoderConfig{Codec: media.CodecVP9}); err == nil {
		t.Error("expected VP9 to be rejected")
	}
	if _, err := New().Decode([]byte{0}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestFromYCbCr(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	for i := range src.Y {
		src.Y[i] = byte(i)
	}
	for i := range src.Cb {
		src.Cb[i] = 50
		src.Cr[i] = 60
	}

	img := FromYCbCr(src)
	if img.Width != 4 || img.Height != 4 {
		t.Fatalf("expected 4x4, got %dx%d", img.Width, img.Height)
	}
	if img.Y[5] != 5 || img.U[3] != 50 || img.V[0] != 60 {
		t.Errorf("unexpected planes Y=%v U=%v V=%v", img.Y, img.U, img.V)
	}
}
