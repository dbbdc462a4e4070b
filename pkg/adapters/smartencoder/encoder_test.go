package smartencoder

import (
	"errors"
	"testing"

	"github.com/user/webmio/pkg/media"
)

func TestNewVideo_Uncompressed(t *testing.T) {
	encoder, info, err := NewVideo(media.CodecUncompressed, Options{})
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	if encoder == nil {
		t.Fatal("encoder is nil")
	}
	if info.Codec != media.CodecUncompressed || info.Backend != BackendRaw {
		t.Errorf("expected raw uncompressed encoder, got %+v", info)
	}
	if info.FallbackUsed {
		t.Error("fallback should not be used for uncompressed video")
	}
}

func TestNewVideo_VP8(t *testing.T) {
	encoder, info, err := NewVideo(media.CodecVP8, Options{AllowFallback: true})
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	if encoder == nil {
		t.Fatal("encoder is nil")
	}
	if info.RequestedCodec != media.CodecVP8 {
		t.Errorf("expected requested codec VP8, got %s", info.RequestedCodec)
	}
	if IsVPXAvailable() {
		if info.Backend != BackendLibvpx || info.FallbackUsed {
			t.Errorf("expected libvpx without fallback, got %+v", info)
		}
	} else if !info.FallbackUsed || info.Codec != media.CodecUncompressed {
		t.Errorf("expected fallback to uncompressed, got %+v", info)
	}
}

func TestNewVideo_NoFallback(t *testing.T) {
	if IsVPXAvailable() {
		t.Skip("libvpx compiled in")
	}
	_, _, err := NewVideo(media.CodecVP9, Options{})
	if !errors.Is(err, ErrNoEncoderAvailable) {
		t.Errorf("expected ErrNoEncoderAvailable, got %v", err)
	}
}

func TestNewAudio(t *testing.T) {
	encoder, info, err := NewAudio(media.CodecVorbis, Options{AllowFallback: true})
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	if encoder == nil {
		t.Fatal("encoder is nil")
	}
	if !IsVorbisAvailable() && info.Codec != media.CodecPCMFloat {
		t.Errorf("expected PCM fallback, got %+v", info)
	}

	if _, _, err := NewAudio("A_AAC", Options{}); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}
