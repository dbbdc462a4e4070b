// Package audioenc drives a transform audio encoder across a whole clip and
// releases its packets one video frame window at a time.
package audioenc

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/webm"
)

var (
	// ErrProtocolViolation is returned when a second packet would have to be
	// held past a window boundary.
	ErrProtocolViolation = errors.New("audioenc: more than one packet held across a window")

	// ErrState is returned for an operation not allowed in the current state.
	ErrState = errors.New("audioenc: invalid state")

	// ErrShortSource is returned when the source returns the wrong channel count.
	ErrShortSource = errors.New("audioenc: source returned malformed samples")
)

// Settings configures the audio track of an export.
type Settings struct {
	Codec       string
	SampleRate  int
	Channels    int
	Quality     float32
	BitrateKbps int

	// TotalSamples is the clip length in samples per channel.
	TotalSamples int64
}

// Pipeline pulls samples from an AudioSource into an AudioEncoder.
type Pipeline struct {
	enc      ports.AudioEncoder
	src      ports.AudioSource
	settings Settings
	logger   ports.Logger

	begun    bool
	finished bool
	private  []byte

	written int64 // samples handed to the encoder
	held    *media.AudioPacket
	packets int
}

// New creates a pipeline reading from src into enc.
func New(enc ports.AudioEncoder, src ports.AudioSource, settings Settings, logger ports.Logger) *Pipeline {
	return &Pipeline{
		enc:      enc,
		src:      src,
		settings: settings,
		logger:   logger.WithComponent("audioenc"),
	}
}

// Begin starts the encoder and packs its setup packets.
func (p *Pipeline) Begin() error {
	if p.begun {
		return fmt.Errorf("%w: begin twice", ErrState)
	}
	headers, err := p.enc.Begin(ports.AudioEncoderConfig{
		Codec:       p.settings.Codec,
		SampleRate:  p.settings.SampleRate,
		Channels:    p.settings.Channels,
		Quality:     p.settings.Quality,
		BitrateKbps: p.settings.BitrateKbps,
	})
	if err != nil {
		return fmt.Errorf("begin audio encoder: %w", err)
	}
	p.private = webm.PackPrivateData(headers[0], headers[1], headers[2])
	p.begun = true
	p.logger.Debug("Audio encoder started: %s %d Hz, %d channels", p.settings.Codec, p.settings.SampleRate, p.settings.Channels)
	return nil
}

// CodecPrivate returns the laced setup packets for the track header.
func (p *Pipeline) CodecPrivate() []byte {
	return p.private
}

// Written returns the number of samples pulled from the source.
func (p *Pipeline) Written() int64 {
	return p.written
}

// Held reports whether a packet is waiting for the next window.
func (p *Pipeline) Held() bool {
	return p.held != nil
}

// Window returns the packets that end before windowEnd, a sample position.
// Packets are taken from the encoder one at a time and collection stops at
// the first one crossing windowEnd, which is held for the next window.
// On the last window the encoder is told the input has ended and every
// remaining packet is returned.
func (p *Pipeline) Window(ctx context.Context, windowEnd int64, last bool) ([]media.AudioPacket, error) {
	if !p.begun || p.finished {
		return nil, fmt.Errorf("%w: window after end of stream", ErrState)
	}

	var out []media.AudioPacket
	if p.held != nil && (last || p.held.Granule < windowEnd) {
		out = append(out, *p.held)
		p.held = nil
	}

	var err error
	for p.held == nil {
		if out, err = p.collect(out, windowEnd, last); err != nil {
			return out, err
		}
		if p.held != nil || p.remaining() <= 0 {
			break
		}
		want := windowEnd - p.written
		if last {
			want = p.remaining()
		}
		if want <= 0 {
			want = int64(max(p.enc.FrameSize(), 1))
		}
		if err := p.pull(ctx, want); err != nil {
			return out, err
		}
	}

	if last {
		if err := p.enc.Finish(); err != nil {
			return out, fmt.Errorf("finish audio encoder: %w", err)
		}
		if out, err = p.collect(out, windowEnd, true); err != nil {
			return out, err
		}
		p.finished = true
	}

	p.packets += len(out)
	if p.finished {
		p.logger.Debug("Audio encoder finished: %d samples, %d packets", p.written, p.packets)
	}
	return out, nil
}

// collect drains ready packets into out until one has to be held.
func (p *Pipeline) collect(out []media.AudioPacket, windowEnd int64, last bool) ([]media.AudioPacket, error) {
	for p.held == nil {
		pkt, ok, err := p.enc.Next()
		if err != nil {
			return out, fmt.Errorf("encode audio: %w", err)
		}
		if !ok {
			return out, nil
		}
		if out, err = p.gate(out, pkt, windowEnd, last); err != nil {
			return out, err
		}
	}
	return out, nil
}

// gate appends a packet inside the window to out and holds one past it.
func (p *Pipeline) gate(out []media.AudioPacket, pkt media.AudioPacket, windowEnd int64, last bool) ([]media.AudioPacket, error) {
	if p.held != nil {
		return out, fmt.Errorf("%w: granule %d while holding %d", ErrProtocolViolation, pkt.Granule, p.held.Granule)
	}
	if last || pkt.Granule < windowEnd {
		return append(out, pkt), nil
	}
	p.held = &pkt
	return out, nil
}

func (p *Pipeline) remaining() int64 {
	return p.settings.TotalSamples - p.written
}

// pull hands up to want samples to the encoder, never more than the
// source's MaxBlip.
func (p *Pipeline) pull(ctx context.Context, want int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rem := p.remaining(); want > rem {
		want = rem
	}
	if blip := int64(p.src.MaxBlip()); blip > 0 && want > blip {
		want = blip
	}

	samples, err := p.src.GetAudioSamples(ctx, int(want))
	if err != nil {
		return fmt.Errorf("get audio samples at %d: %w", p.written, err)
	}
	if len(samples) != p.settings.Channels {
		return fmt.Errorf("%w: %d channels, expected %d", ErrShortSource, len(samples), p.settings.Channels)
	}
	n := int64(len(samples[0]))
	if n == 0 {
		// The source ran dry; treat the clip as ending here.
		p.settings.TotalSamples = p.written
		return nil
	}
	p.written += n

	if err := p.enc.Write(samples); err != nil {
		return fmt.Errorf("encode audio: %w", err)
	}
	return nil
}

// End releases the encoder.
func (p *Pipeline) End() error {
	if !p.begun {
		return nil
	}
	p.begun = false
	if err := p.enc.End(); err != nil {
		return fmt.Errorf("end audio encoder: %w", err)
	}
	return nil
}

// SampleRate returns the configured sample rate.
func (p *Pipeline) SampleRate() int {
	return p.settings.SampleRate
}
