package videoenc

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
)

func testSettings(rc ports.RateControl) Settings {
	return Settings{
		Codec:           media.CodecUncompressed,
		Width:           4,
		Height:          4,
		FrameRate:       timebase.Rational{Num: 24, Den: 1},
		RateControl:     rc,
		Quality:         50,
		KeyframeMaxDist: 3,
	}
}

func testFrames(n int) Frames {
	return func(ctx context.Context, yield func(Frame) error) error {
		for i := 0; i < n; i++ {
			img := media.NewImage(4, 4)
			img.Y[0] = byte(i)
			if err := yield(Frame{Image: img, PTS: int64(i), Duration: 1}); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestCQQuantizer(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{0, 63},
		{50, 34},
		{100, 4},
	}
	for _, tt := range tests {
		if got := CQQuantizer(tt.quality, 4, 63); got != tt.want {
			t.Errorf("CQQuantizer(%d): expected %d, got %d", tt.quality, tt.want, got)
		}
	}
}

func TestPipeline_EncoderConfig(t *testing.T) {
	enc := &mocks.VideoEncoder{}
	p := New(enc, testSettings(ports.RateCQ), logger.NewNoop())

	if err := p.Begin(ports.PassOnly, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enc.BeginCalls) != 1 {
		t.Fatalf("expected 1 Begin call, got %d", len(enc.BeginCalls))
	}
	cfg := enc.BeginCalls[0]
	if cfg.Quantizer != 34 {
		t.Errorf("expected quantizer 34, got %d", cfg.Quantizer)
	}
	if cfg.BitrateKbps != DefaultBitrateKbps {
		t.Errorf("expected %d kbps, got %d", DefaultBitrateKbps, cfg.BitrateKbps)
	}
	if cfg.Timebase.Num != 1 || cfg.Timebase.Den != 24 {
		t.Errorf("expected timebase 1/24, got %s", cfg.Timebase)
	}
	if cfg.MinQuantizer != DefaultMinQ || cfg.MaxQuantizer != DefaultMaxQ {
		t.Errorf("expected default quantizer range, got %d..%d", cfg.MinQuantizer, cfg.MaxQuantizer)
	}
}

func TestPipeline_EncoderConfigDeadlineAndControls(t *testing.T) {
	enc := &mocks.VideoEncoder{}
	settings := testSettings(ports.RateCBR)
	settings.Deadline = ports.DeadlineRealtime
	settings.Controls = map[string]int{"cpu-used": 8}
	p := New(enc, settings, logger.NewNoop())

	if err := p.Begin(ports.PassOnly, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := enc.BeginCalls[0]
	if cfg.Deadline != ports.DeadlineRealtime {
		t.Errorf("expected realtime deadline, got %s", cfg.Deadline)
	}
	if cfg.Controls["cpu-used"] != 8 {
		t.Errorf("expected cpu-used=8, got %v", cfg.Controls)
	}
}

func TestPipeline_SinglePassDrainsLookahead(t *testing.T) {
	p := New(rawcodec.NewVideoEncoder(2), testSettings(ports.RateCBR), logger.NewNoop())

	if err := p.Begin(ports.PassOnly, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.State() != StateFinalPass {
		t.Errorf("expected state %s, got %s", StateFinalPass, p.State())
	}

	var got []media.Packet
	wantCounts := []int{0, 0, 1, 1, 1}
	for i := 0; i < 5; i++ {
		pkts, err := p.Encode(media.NewImage(4, 4), int64(i), 1)
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if len(pkts) != wantCounts[i] {
			t.Errorf("frame %d: expected %d packets, got %d", i, wantCounts[i], len(pkts))
		}
		got = append(got, pkts...)
	}

	rest, err := p.Flush()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.State() != StateDraining {
		t.Errorf("expected state %s, got %s", StateDraining, p.State())
	}
	if len(rest) != 2 {
		t.Errorf("expected 2 flushed packets, got %d", len(rest))
	}
	got = append(got, rest...)

	for i, pkt := range got {
		if pkt.PTS != int64(i) {
			t.Errorf("packet %d: expected pts %d, got %d", i, i, pkt.PTS)
		}
		if want := i%3 == 0; pkt.Keyframe != want {
			t.Errorf("packet %d: expected keyframe=%v", i, want)
		}
	}

	if _, err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.State() != StateClosed {
		t.Errorf("expected state %s, got %s", StateClosed, p.State())
	}
}

func TestPipeline_TwoPass(t *testing.T) {
	p := New(rawcodec.NewVideoEncoder(2), testSettings(ports.RateVBR), logger.NewNoop())
	ctx := context.Background()

	stats, err := p.Pass1(ctx, testFrames(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Records != 6 {
		t.Errorf("expected 6 statistics records, got %d", stats.Records)
	}
	if len(stats.Data) == 0 {
		t.Fatal("expected statistics data")
	}

	var pts []int64
	err = p.Pass2(ctx, testFrames(6), stats, func(pkt media.Packet) error {
		if pkt.Kind != media.PacketFrame {
			t.Errorf("expected only frame packets, got kind %d", pkt.Kind)
		}
		pts = append(pts, pkt.PTS)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pts) != 6 {
		t.Fatalf("expected 6 packets, got %d", len(pts))
	}
	for i, v := range pts {
		if v != int64(i) {
			t.Errorf("packet %d: expected pts %d, got %d", i, i, v)
		}
	}
}

func TestPipeline_PassMismatch(t *testing.T) {
	p := New(rawcodec.NewVideoEncoder(0), testSettings(ports.RateVBR), logger.NewNoop())
	ctx := context.Background()

	stats, err := p.Pass1(ctx, testFrames(6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = p.Pass2(ctx, testFrames(5), stats, func(media.Packet) error { return nil })
	if !errors.Is(err, ErrPassMismatch) {
		t.Errorf("expected ErrPassMismatch, got %v", err)
	}
}

func TestPipeline_RejectsUnsubmittedPacket(t *testing.T) {
	enc := &mocks.VideoEncoder{
		EncodeFunc: func(img *media.Image, pts, duration int64) ([]media.Packet, error) {
			return []media.Packet{{Kind: media.PacketFrame, PTS: pts + 99}}, nil
		},
	}
	p := New(enc, testSettings(ports.RateCBR), logger.NewNoop())
	if err := p.Begin(ports.PassOnly, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Encode(media.NewImage(4, 4), 0, 1); !errors.Is(err, ErrPacketOrder) {
		t.Errorf("expected ErrPacketOrder, got %v", err)
	}
}

func TestPipeline_RejectsReorderedPackets(t *testing.T) {
	enc := &mocks.VideoEncoder{
		EncodeFunc: func(img *media.Image, pts, duration int64) ([]media.Packet, error) {
			if pts == 0 {
				return nil, nil
			}
			return []media.Packet{
				{Kind: media.PacketFrame, PTS: 1},
				{Kind: media.PacketFrame, PTS: 0},
			}, nil
		},
	}
	p := New(enc, testSettings(ports.RateCBR), logger.NewNoop())
	if err := p.Begin(ports.PassOnly, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Encode(media.NewImage(4, 4), 0, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Encode(media.NewImage(4, 4), 1, 1); !errors.Is(err, ErrPacketOrder) {
		t.Errorf("expected ErrPacketOrder, got %v", err)
	}
}

func TestPipeline_StateErrors(t *testing.T) {
	enc := &mocks.VideoEncoder{}
	p := New(enc, testSettings(ports.RateVBR), logger.NewNoop())

	if _, err := p.Encode(media.NewImage(4, 4), 0, 1); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState before Begin, got %v", err)
	}
	if _, err := p.Flush(); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState for Flush before Begin, got %v", err)
	}
	if err := p.Begin(ports.PassLast, nil); !errors.Is(err, ErrNoStatistics) {
		t.Errorf("expected ErrNoStatistics, got %v", err)
	}
	if len(enc.BeginCalls) != 0 {
		t.Errorf("expected encoder not to be started, got %d calls", len(enc.BeginCalls))
	}

	if err := p.Begin(ports.PassFirst, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Begin(ports.PassFirst, nil); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState for a second Begin, got %v", err)
	}
	if _, err := p.Encode(media.NewImage(4, 4), 5, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Encode(media.NewImage(4, 4), 5, 1); !errors.Is(err, ErrPacketOrder) {
		t.Errorf("expected ErrPacketOrder for a repeated pts, got %v", err)
	}
	if _, err := p.Encode(nil, 6, 1); err == nil {
		t.Error("expected error for a nil image")
	}

	stats, err := p.Close()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Records != 1 {
		t.Errorf("expected 1 record from the mock, got %d", stats.Records)
	}
	if enc.EndCalled != 1 {
		t.Errorf("expected End to be called once, got %d", enc.EndCalled)
	}
}
