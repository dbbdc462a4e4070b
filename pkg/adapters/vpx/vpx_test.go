package vpx

import (
	"errors"
	"testing"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
)

func TestHandles(t *testing.T) {
	if !Handles(media.CodecVP8) || !Handles(media.CodecVP9) {
		t.Error("expected VP8 and VP9 to be handled")
	}
	if Handles(media.CodecUncompressed) {
		t.Error("expected uncompressed video not to be handled")
	}
}

func TestEncoder_RejectsOtherCodecs(t *testing.T) {
	err := New().Begin(ports.VideoEncoderConfig{Codec: media.CodecUncompressed, Width: 16, Height: 16})
	if err == nil {
		t.Fatal("expected an error")
	}
	if Available() && !errors.Is(err, ErrCodecMismatch) {
		t.Errorf("expected ErrCodecMismatch, got %v", err)
	}
	if !Available() && !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	if !Available() {
		t.Skip("libvpx not compiled in")
	}

	enc := New()
	err := enc.Begin(ports.VideoEncoderConfig{
		Codec:           media.CodecVP8,
		Width:           64,
		Height:          64,
		Timebase:        timebase.Rational{Num: 1, Den: 30},
		RateControl:     ports.RateCQ,
		MaxQuantizer:    63,
		Quantizer:       20,
		KeyframeMaxDist: 30,
	})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer enc.End()

	var frames []media.Packet
	for i := int64(0); i < 5; i++ {
		img := media.NewImage(64, 64)
		for j := range img.Y {
			img.Y[j] = byte(i * 40)
		}
		pkts, err := enc.Encode(img, i, 1)
		if err != nil {
			t.Fatalf("Encode %d failed: %v", i, err)
		}
		frames = append(frames, pkts...)
	}
	rest, err := enc.Encode(nil, 0, 0)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	frames = append(frames, rest...)
	if len(frames) == 0 || !frames[0].Keyframe {
		t.Fatalf("expected a leading keyframe, got %d packets", len(frames))
	}

	dec := NewDecoder()
	if err := dec.Begin(ports.VideoDecoderConfig{Codec: media.CodecVP8, Width: 64, Height: 64}); err != nil {
		t.Fatalf("decoder Begin failed: %v", err)
	}
	defer dec.End()
	imgs, err := dec.Decode(frames[0].Data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(imgs) != 1 || imgs[0].Width != 64 {
		t.Fatalf("expected one 64 wide picture, got %d", len(imgs))
	}
}

func TestDeadlineMicros(t *testing.T) {
	tests := []struct {
		deadline ports.Deadline
		want     uint64
	}{
		{ports.DeadlineGood, 1000000},
		{ports.DeadlineRealtime, 1},
		{ports.DeadlineBest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.deadline.String(), func(t *testing.T) {
			if got := DeadlineMicros(tt.deadline); got != tt.want {
				t.Errorf("DeadlineMicros(%v) = %d, want %d", tt.deadline, got, tt.want)
			}
		})
	}
}

func TestValidateControls(t *testing.T) {
	tests := []struct {
		name     string
		codec    string
		controls map[string]int
		wantErr  bool
	}{
		{"none", media.CodecVP8, nil, false},
		{"vp8 controls", media.CodecVP8, map[string]int{"cpu-used": 8, "sharpness": 2, "auto-alt-ref": 1}, false},
		{"vp9 tile columns", media.CodecVP9, map[string]int{"tile-columns": 2}, false},
		{"tile columns on vp8", media.CodecVP8, map[string]int{"tile-columns": 2}, true},
		{"unknown name", media.CodecVP9, map[string]int{"lag-in-frames": 25}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateControls(tt.codec, tt.controls)
			if tt.wantErr && !errors.Is(err, ErrUnknownControl) {
				t.Errorf("expected ErrUnknownControl, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestControlNames_Sorted(t *testing.T) {
	names := ControlNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("control names not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
}

func TestEncoder_RejectsUnknownControl(t *testing.T) {
	if !Available() {
		t.Skip("libvpx not compiled in")
	}
	err := New().Begin(ports.VideoEncoderConfig{
		Codec:    media.CodecVP8,
		Width:    16,
		Height:   16,
		Timebase: timebase.Rational{Num: 1, Den: 30},
		Deadline: ports.DeadlineRealtime,
		Controls: map[string]int{"tile-columns": 1},
	})
	if !errors.Is(err, ErrUnknownControl) {
		t.Errorf("expected ErrUnknownControl, got %v", err)
	}
}
