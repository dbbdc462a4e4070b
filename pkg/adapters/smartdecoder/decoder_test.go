package smartdecoder

import (
	"errors"
	"testing"

	"github.com/user/webmio/pkg/adapters/vpx"
	"github.com/user/webmio/pkg/media"
)

func TestNewVideo_Uncompressed(t *testing.T) {
	decoder, info, err := NewVideo(media.CodecUncompressed)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	if decoder == nil {
		t.Fatal("decoder is nil")
	}
	if info.Backend != BackendRaw {
		t.Errorf("expected raw backend, got %s", info.Backend)
	}
}

func TestNewVideo_VP8AlwaysAvailable(t *testing.T) {
	_, info, err := NewVideo(media.CodecVP8)
	if err != nil {
		t.Fatalf("failed to create VP8 decoder: %v", err)
	}
	want := BackendPureGo
	if vpx.Available() {
		want = BackendLibvpx
	}
	if info.Backend != want {
		t.Errorf("expected backend %s, got %s", want, info.Backend)
	}
	if !CanDecodeVideo(media.CodecVP8) {
		t.Error("expected VP8 to be decodable")
	}
	if KeyframesOnly(media.CodecVP8) != !vpx.Available() {
		t.Errorf("expected KeyframesOnly(VP8) to be %v", !vpx.Available())
	}
	if KeyframesOnly(media.CodecUncompressed) {
		t.Error("expected uncompressed video to decode every frame")
	}
}

func TestNewVideo_Unknown(t *testing.T) {
	_, _, err := NewVideo("V_MPEG4/ISO/AVC")
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
	if CanDecodeVideo("V_MPEG4/ISO/AVC") {
		t.Error("expected AVC not to be decodable")
	}
}

func TestNewAudio(t *testing.T) {
	if _, _, err := NewAudio(media.CodecPCMFloat); err != nil {
		t.Fatalf("failed to create PCM decoder: %v", err)
	}
	if !CanDecodeAudio(media.CodecPCMFloat) {
		t.Error("expected PCM to be decodable")
	}
	if _, _, err := NewAudio("A_OPUS"); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}
