package audioenc

import (
	"context"
	"errors"
	"testing"

	"github.com/user/webmio/pkg/adapters/logger"
	"github.com/user/webmio/pkg/adapters/rawcodec"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/mocks"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/webm"
)

func pcmSettings(total int64) Settings {
	return Settings{
		Codec:        media.CodecPCMFloat,
		SampleRate:   48000,
		Channels:     1,
		TotalSamples: total,
	}
}

// windowEnds returns the sample position at the end of each 24 fps frame.
func windowEnds(t *testing.T, frames int) []int64 {
	t.Helper()
	tb, err := timebase.New(timebase.DefaultTicksPerSecond, timebase.Rational{Num: 24, Den: 1}, timebase.DefaultTimecodeScale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ends := make([]int64, frames)
	for i := range ends {
		tc := tb.ToContainerTimecode(tb.FrameTick(int64(i + 1)))
		ends[i] = tb.TimecodeToSample(tc, 48000)
	}
	return ends
}

func TestPipeline_WindowsCoverClip(t *testing.T) {
	src := &mocks.AudioSource{Channels: 1, Blip: 1024}
	p := New(rawcodec.NewAudioEncoder(480), src, pcmSettings(20000), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.End()

	ctx := context.Background()
	ends := windowEnds(t, 10)

	var all []media.AudioPacket
	for i, end := range ends {
		last := i == len(ends)-1
		pkts, err := p.Window(ctx, end, last)
		if err != nil {
			t.Fatalf("window %d: unexpected error: %v", i, err)
		}
		if !last {
			for _, pkt := range pkts {
				if pkt.Granule >= end {
					t.Errorf("window %d: packet granule %d not below window end %d", i, pkt.Granule, end)
				}
			}
		}
		all = append(all, pkts...)
	}

	total := 0
	prev := int64(0)
	for i, pkt := range all {
		if pkt.Granule <= prev {
			t.Errorf("packet %d: granule %d not after %d", i, pkt.Granule, prev)
		}
		if pkt.StartSample() != prev {
			t.Errorf("packet %d: expected start %d, got %d", i, prev, pkt.StartSample())
		}
		prev = pkt.Granule
		total += pkt.Samples
	}
	if total != 20000 {
		t.Errorf("expected 20000 samples, got %d", total)
	}
	if p.Held() {
		t.Error("expected nothing held after the last window")
	}
	if _, err := p.Window(ctx, 30000, true); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState after the last window, got %v", err)
	}
}

func TestPipeline_FirstWindowHoldsOnePacket(t *testing.T) {
	src := &mocks.AudioSource{Channels: 1, Blip: 1024}
	p := New(rawcodec.NewAudioEncoder(480), src, pcmSettings(20000), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pkts, err := p.Window(context.Background(), 2016, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pkts) != 4 {
		t.Fatalf("expected 4 packets, got %d", len(pkts))
	}
	if pkts[3].Granule != 1920 {
		t.Errorf("expected last granule 1920, got %d", pkts[3].Granule)
	}
	if !p.Held() {
		t.Error("expected the packet crossing the window to be held")
	}
	if p.Written() != 2496 {
		t.Errorf("expected 2496 samples written, got %d", p.Written())
	}
}

func TestPipeline_HonorsMaxBlip(t *testing.T) {
	src := &mocks.AudioSource{Channels: 2, Blip: 300}
	settings := pcmSettings(5000)
	settings.Channels = 2
	p := New(rawcodec.NewAudioEncoder(480), src, settings, logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Window(context.Background(), 5000, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, n := range src.Requests {
		if n > 300 {
			t.Errorf("request %d: asked for %d samples, max blip is 300", i, n)
		}
	}
	if src.Requested() != 5000 {
		t.Errorf("expected 5000 samples requested, got %d", src.Requested())
	}
}

func TestPipeline_CodecPrivate(t *testing.T) {
	p := New(&mocks.AudioEncoder{}, &mocks.AudioSource{}, pcmSettings(100), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blob := p.CodecPrivate()
	if n := webm.PrivateDataCount(blob); n != 3 {
		t.Fatalf("expected 3 packets, got %d", n)
	}
	setup, err := webm.PrivateDataPart(blob, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(setup) != "setup" {
		t.Errorf("expected setup packet, got %q", setup)
	}
}

// lagEncoder mimics a short-block Vorbis encoder: 128-sample packets that
// become ready only once 1024 samples of lookahead follow them.
type lagEncoder struct {
	written  int64
	granule  int64
	finished bool
}

func (e *lagEncoder) Begin(ports.AudioEncoderConfig) (ports.AudioHeaders, error) {
	return ports.AudioHeaders{{1}, {2}, {3}}, nil
}

func (e *lagEncoder) FrameSize() int { return 256 }

func (e *lagEncoder) Write(samples [][]float32) error {
	e.written += int64(len(samples[0]))
	return nil
}

func (e *lagEncoder) Next() (media.AudioPacket, bool, error) {
	end := e.granule + 128
	switch {
	case end+1024 <= e.written:
	case e.finished && e.granule < e.written:
		end = min(end, e.written)
	default:
		return media.AudioPacket{}, false, nil
	}
	pkt := media.AudioPacket{Data: []byte{0}, Granule: end, Samples: int(end - e.granule)}
	e.granule = end
	return pkt, true, nil
}

// ready counts packets Next would return without more input.
func (e *lagEncoder) ready() int64 {
	if n := (e.written - 1024 - e.granule) / 128; n > 0 {
		return n
	}
	return 0
}

func (e *lagEncoder) Finish() error {
	e.finished = true
	return nil
}

func (e *lagEncoder) End() error { return nil }

func TestPipeline_LaggingEncoderKeepsBlocksInCodec(t *testing.T) {
	enc := &lagEncoder{}
	src := &mocks.AudioSource{Channels: 1, Blip: 1024}
	p := New(enc, src, pcmSettings(48000), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	ends := windowEnds(t, 24)
	var total int
	prev := int64(0)
	for i, end := range ends {
		last := i == len(ends)-1
		pkts, err := p.Window(ctx, end, last)
		if err != nil {
			t.Fatalf("window %d (end %d): unexpected error: %v", i, end, err)
		}
		for _, pkt := range pkts {
			if !last && pkt.Granule >= end {
				t.Errorf("window %d: packet granule %d not below window end %d", i, pkt.Granule, end)
			}
			if pkt.StartSample() != prev {
				t.Errorf("window %d: expected start %d, got %d", i, prev, pkt.StartSample())
			}
			prev = pkt.Granule
			total += pkt.Samples
		}
		if i == 0 {
			if !p.Held() {
				t.Error("expected the first window to hold a packet")
			}
			if enc.ready() == 0 {
				t.Error("expected the next block to stay inside the encoder")
			}
		}
	}
	if total != 48000 {
		t.Errorf("expected 48000 samples, got %d", total)
	}
}

func TestPipeline_GateRejectsSecondHeldPacket(t *testing.T) {
	p := New(&mocks.AudioEncoder{}, &mocks.AudioSource{Channels: 1}, pcmSettings(20000), logger.NewNoop())
	out, err := p.gate(nil, media.AudioPacket{Granule: 5000, Samples: 100}, 1000, false)
	if err != nil || len(out) != 0 || !p.Held() {
		t.Fatalf("expected the packet to be held, got %v, %v", out, err)
	}
	if _, err := p.gate(out, media.AudioPacket{Granule: 5100, Samples: 100}, 1000, false); !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("expected ErrProtocolViolation, got %v", err)
	}
}

func TestPipeline_EncoderErrors(t *testing.T) {
	boom := errors.New("boom")
	enc := &mocks.AudioEncoder{
		NextFunc: func() (media.AudioPacket, bool, error) { return media.AudioPacket{}, false, boom },
	}
	p := New(enc, &mocks.AudioSource{Channels: 1}, pcmSettings(1000), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Window(context.Background(), 500, false); !errors.Is(err, boom) {
		t.Errorf("expected encoder error, got %v", err)
	}
}

func TestPipeline_SourceErrors(t *testing.T) {
	boom := errors.New("boom")
	src := &mocks.AudioSource{
		GetFunc: func(ctx context.Context, count int) ([][]float32, error) { return nil, boom },
	}
	p := New(&mocks.AudioEncoder{}, src, pcmSettings(1000), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Window(context.Background(), 500, false); !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}

	wrong := &mocks.AudioSource{Channels: 2}
	p = New(&mocks.AudioEncoder{}, wrong, pcmSettings(1000), logger.NewNoop())
	if err := p.Begin(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Window(context.Background(), 500, false); !errors.Is(err, ErrShortSource) {
		t.Errorf("expected ErrShortSource, got %v", err)
	}
}

func TestPipeline_WindowBeforeBegin(t *testing.T) {
	p := New(&mocks.AudioEncoder{}, &mocks.AudioSource{}, pcmSettings(100), logger.NewNoop())
	if _, err := p.Window(context.Background(), 10, false); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState, got %v", err)
	}
}
