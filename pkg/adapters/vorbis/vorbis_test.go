package vorbis

import (
	"math"
	"testing"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

func TestEncodeDecode(t *testing.T) {
	if !Available() {
		t.Skip("libvorbis not compiled in")
	}

	enc := New()
	headers, err := enc.Begin(ports.AudioEncoderConfig{Codec: media.CodecVorbis, SampleRate: 48000, Channels: 1, Quality: 0.4})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	defer enc.End()
	if enc.FrameSize() <= 0 {
		t.Errorf("expected a positive frame size")
	}

	tone := make([]float32, 48000)
	for i := range tone {
		tone[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}
	// Feed the tone in 960-sample chunks, collecting packets as they finish.
	var pkts []media.AudioPacket
	collect := func() {
		for {
			pkt, ok, err := enc.Next()
			if err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if !ok {
				return
			}
			pkts = append(pkts, pkt)
		}
	}
	for off := 0; off < len(tone); off += 960 {
		if err := enc.Write([][]float32{tone[off : off+960]}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		collect()
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	collect()
	if len(pkts) == 0 {
		t.Fatal("expected packets")
	}
	last := pkts[len(pkts)-1]
	if last.Granule != 48000 {
		t.Errorf("expected final granule 48000, got %d", last.Granule)
	}

	dec := NewDecoder()
	if err := dec.Begin(ports.AudioDecoderConfig{Codec: media.CodecVorbis, Headers: headers}); err != nil {
		t.Fatalf("decoder Begin failed: %v", err)
	}
	defer dec.End()

	total := 0
	for _, p := range pkts {
		out, err := dec.Decode(p.Data)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		total += len(out[0])
	}
	if total < 47000 {
		t.Errorf("expected close to 48000 decoded samples, got %d", total)
	}
}

func TestStubOrMismatch(t *testing.T) {
	_, err := New().Begin(ports.AudioEncoderConfig{Codec: media.CodecPCMFloat, SampleRate: 48000, Channels: 1})
	if err == nil {
		t.Fatal("expected an error for a non-Vorbis codec")
	}
}
