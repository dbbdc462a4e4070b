// Package tonesource provides a synthetic ports.AudioSource: a sine tone
// per channel, one octave apart.
package tonesource

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/user/webmio/pkg/ports"
)

// DefaultMaxBlip is the largest request served when Options.MaxBlip is unset.
const DefaultMaxBlip = 4096

// Options configures the tone.
type Options struct {
	SampleRate int
	Channels   int
	// Frequency of channel 0 in Hz. Channel n plays 2^n times higher.
	Frequency float64
	Amplitude float64
	MaxBlip   int
}

// Source generates the tone sequentially.
type Source struct {
	opts Options

	mu  sync.Mutex
	pos int64
}

// New creates a Source.
func New(opts Options) (*Source, error) {
	if opts.SampleRate <= 0 || opts.Channels <= 0 {
		return nil, fmt.Errorf("tonesource: invalid format %d Hz, %d channels", opts.SampleRate, opts.Channels)
	}
	if opts.MaxBlip <= 0 {
		opts.MaxBlip = DefaultMaxBlip
	}
	if opts.Frequency <= 0 {
		opts.Frequency = 440
	}
	if opts.Amplitude <= 0 {
		opts.Amplitude = 0.25
	}
	return &Source{opts: opts}, nil
}

// MaxBlip returns the largest request size.
func (s *Source) MaxBlip() int {
	return s.opts.MaxBlip
}

// Position returns the number of samples served so far.
func (s *Source) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// GetAudioSamples returns the next count samples of every channel.
func (s *Source) GetAudioSamples(ctx context.Context, count int) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count < 0 || count > s.opts.MaxBlip {
		return nil, fmt.Errorf("tonesource: request of %d samples outside 0..%d", count, s.opts.MaxBlip)
	}

	s.mu.Lock()
	start := s.pos
	s.pos += int64(count)
	s.mu.Unlock()

	out := make([][]float32, s.opts.Channels)
	for ch := range out {
		freq := s.opts.Frequency * math.Exp2(float64(ch))
		step := 2 * math.Pi * freq / float64(s.opts.SampleRate)
		buf := make([]float32, count)
		for i := range buf {
			buf[i] = float32(s.opts.Amplitude * math.Sin(step*float64(start+int64(i))))
		}
		out[ch] = buf
	}
	return out, nil
}

var _ ports.AudioSource = (*Source)(nil)
