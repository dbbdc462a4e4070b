package tonesource

import (
	"context"
	"math"
	"testing"
)

func TestSource_Continuous(t *testing.T) {
	s, err := New(Options{SampleRate: 48000, Channels: 2, Frequency: 1000, Amplitude: 0.5, MaxBlip: 256})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.MaxBlip() != 256 {
		t.Errorf("expected max blip 256, got %d", s.MaxBlip())
	}

	first, err := s.GetAudioSamples(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.GetAudioSamples(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 || len(first[0]) != 100 {
		t.Fatalf("expected 2x100 samples, got %dx%d", len(first), len(first[0]))
	}
	if s.Position() != 200 {
		t.Errorf("expected position 200, got %d", s.Position())
	}

	step := 2 * math.Pi * 1000 / 48000
	want := float32(0.5 * math.Sin(step*150))
	if got := second[0][50]; math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("expected sample 150 = %v, got %v", want, got)
	}
	if first[0][0] != 0 {
		t.Errorf("expected the tone to start at zero, got %v", first[0][0])
	}

	var peak float32
	for _, v := range append(first[1], second[1]...) {
		if v > peak {
			peak = v
		}
	}
	if peak > 0.5 {
		t.Errorf("expected amplitude at most 0.5, got %v", peak)
	}
}

func TestSource_Errors(t *testing.T) {
	if _, err := New(Options{SampleRate: 0, Channels: 1}); err == nil {
		t.Error("expected error for a zero sample rate")
	}

	s, _ := New(Options{SampleRate: 8000, Channels: 1, MaxBlip: 64})
	if _, err := s.GetAudioSamples(context.Background(), 65); err == nil {
		t.Error("expected error above max blip")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.GetAudioSamples(ctx, 10); err == nil {
		t.Error("expected error on a cancelled context")
	}
}
