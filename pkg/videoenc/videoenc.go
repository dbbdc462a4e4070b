// Package videoenc drives a block-based video encoder through one or two
// passes and checks the order of the packets it drains.
package videoenc

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
)

var (
	// ErrPassMismatch is returned when the final pass encodes a different
	// number of frames than the statistics pass recorded.
	ErrPassMismatch = errors.New("videoenc: frame count differs between passes")

	// ErrState is returned for an operation not allowed in the current state.
	ErrState = errors.New("videoenc: invalid state")

	// ErrPacketOrder is returned when the encoder emits a packet out of
	// timestamp order or for a frame that was never submitted.
	ErrPacketOrder = errors.New("videoenc: packet out of order")

	// ErrNoStatistics is returned when a two-pass final pass starts without statistics.
	ErrNoStatistics = errors.New("videoenc: final pass needs first pass statistics")
)

// State is the lifecycle of a Pipeline.
type State int

const (
	StateIdle State = iota
	StateFirstPass
	StateFinalPass
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFirstPass:
		return "first-pass"
	case StateFinalPass:
		return "final-pass"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Default rate control parameters.
const (
	DefaultQuality     = 50
	DefaultBitrateKbps = 1000
	DefaultMinQ        = 4
	DefaultMaxQ        = 63
)

// Settings configures the encoder for a whole export.
type Settings struct {
	Codec     string
	Width     int
	Height    int
	FrameRate timebase.Rational

	RateControl ports.RateControl
	// Quality is 0 (worst) to 100 (best), used by RateCQ.
	Quality      int
	BitrateKbps  int
	MinQuantizer int
	MaxQuantizer int

	KeyframeMaxDist int
	Deadline        ports.Deadline
	// Controls are passed through to the codec untouched.
	Controls map[string]int

	// Threads is the hardware concurrency handed to the codec.
	Threads int
}

// TwoPass reports whether the settings need a statistics pass.
func (s Settings) TwoPass() bool {
	return s.RateControl == ports.RateVBR
}

// CQQuantizer maps a 0..100 quality onto the inverted quantizer range.
func CQQuantizer(quality, minQ, maxQ int) int {
	return int(float64(100-quality)/100*float64(maxQ-minQ) + float64(minQ) + 0.5)
}

func (s Settings) encoderConfig(pass ports.EncodePass, stats []byte) ports.VideoEncoderConfig {
	minQ, maxQ := s.MinQuantizer, s.MaxQuantizer
	if maxQ <= 0 {
		minQ, maxQ = DefaultMinQ, DefaultMaxQ
	}
	cfg := ports.VideoEncoderConfig{
		Codec:           s.Codec,
		Width:           s.Width,
		Height:          s.Height,
		Timebase:        timebase.Rational{Num: s.FrameRate.Den, Den: s.FrameRate.Num},
		Threads:         s.Threads,
		RateControl:     s.RateControl,
		BitrateKbps:     s.BitrateKbps,
		MinQuantizer:    minQ,
		MaxQuantizer:    maxQ,
		KeyframeMaxDist: s.KeyframeMaxDist,
		Deadline:        s.Deadline,
		Controls:        s.Controls,
		Pass:            pass,
		Stats:           stats,
	}
	if s.RateControl == ports.RateCQ {
		cfg.Quantizer = CQQuantizer(s.Quality, minQ, maxQ)
		cfg.BitrateKbps = DefaultBitrateKbps
	}
	if cfg.BitrateKbps <= 0 {
		cfg.BitrateKbps = DefaultBitrateKbps
	}
	return cfg
}

// Statistics is the output of the first pass.
type Statistics struct {
	Data    []byte
	Records int
}

// Pipeline wraps one encoder for one pass at a time.
type Pipeline struct {
	enc      ports.VideoEncoder
	settings Settings
	logger   ports.Logger

	state State
	pass  ports.EncodePass

	submitted []int64 // pts not yet drained, in submit order
	lastPts   int64
	lastDur   int64
	emitted   bool
	lastOut   int64

	frames        int
	stats         []byte
	records       int
	expectRecords int
}

// New creates a pipeline around enc.
func New(enc ports.VideoEncoder, settings Settings, logger ports.Logger) *Pipeline {
	return &Pipeline{
		enc:      enc,
		settings: settings,
		logger:   logger.WithComponent("videoenc"),
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	return p.state
}

// Frames returns the number of frames submitted in the current pass.
func (p *Pipeline) Frames() int {
	return p.frames
}

// Begin starts a pass. stats is required for ports.PassLast.
func (p *Pipeline) Begin(pass ports.EncodePass, stats *Statistics) error {
	if p.state != StateIdle && p.state != StateClosed {
		return fmt.Errorf("%w: begin in %s", ErrState, p.state)
	}

	var statsData []byte
	p.expectRecords = -1
	if pass == ports.PassLast {
		if stats == nil || len(stats.Data) == 0 {
			return ErrNoStatistics
		}
		statsData = stats.Data
		p.expectRecords = stats.Records
	}

	if err := p.enc.Begin(p.settings.encoderConfig(pass, statsData)); err != nil {
		return fmt.Errorf("begin encoder: %w", err)
	}

	p.pass = pass
	p.submitted = nil
	p.emitted = false
	p.frames = 0
	p.stats = nil
	p.records = 0
	if pass == ports.PassFirst {
		p.state = StateFirstPass
	} else {
		p.state = StateFinalPass
	}
	p.logger.Debug("Encoder started: %s %dx%d, %s pass", p.settings.Codec, p.settings.Width, p.settings.Height, p.state)
	return nil
}

// Encode submits one frame and returns the compressed packets drained.
// Statistics packets are kept internally and never returned.
func (p *Pipeline) Encode(img *media.Image, pts, duration int64) ([]media.Packet, error) {
	if p.state != StateFirstPass && p.state != StateFinalPass {
		return nil, fmt.Errorf("%w: encode in %s", ErrState, p.state)
	}
	if img == nil {
		return nil, fmt.Errorf("videoenc: nil image at pts %d", pts)
	}
	if p.frames > 0 && pts <= p.lastPts {
		return nil, fmt.Errorf("%w: submitted pts %d after %d", ErrPacketOrder, pts, p.lastPts)
	}

	if p.pass != ports.PassFirst {
		p.submitted = append(p.submitted, pts)
	}
	p.lastPts = pts
	p.lastDur = duration
	p.frames++

	pkts, err := p.enc.Encode(img, pts, duration)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", pts, err)
	}
	return p.accept(pkts)
}

// Flush drains encoder lookahead by resubmitting the last timestamp with
// no image until the encoder has nothing left.
func (p *Pipeline) Flush() ([]media.Packet, error) {
	if p.state != StateFirstPass && p.state != StateFinalPass {
		return nil, fmt.Errorf("%w: flush in %s", ErrState, p.state)
	}
	p.state = StateDraining

	var out []media.Packet
	for {
		pkts, err := p.enc.Encode(nil, p.lastPts, p.lastDur)
		if err != nil {
			return out, fmt.Errorf("flush encoder: %w", err)
		}
		if len(pkts) == 0 {
			break
		}
		frames, err := p.accept(pkts)
		if err != nil {
			return out, err
		}
		out = append(out, frames...)
	}
	return out, nil
}

func (p *Pipeline) accept(pkts []media.Packet) ([]media.Packet, error) {
	var out []media.Packet
	for _, pkt := range pkts {
		if pkt.Kind == media.PacketStats {
			p.stats = append(p.stats, pkt.Data...)
			p.records++
			continue
		}
		if err := p.check(pkt.PTS); err != nil {
			return out, err
		}
		out = append(out, pkt)
	}
	return out, nil
}

// check verifies the packet was submitted and follows the last one.
func (p *Pipeline) check(pts int64) error {
	if p.emitted && pts <= p.lastOut {
		return fmt.Errorf("%w: pts %d after %d", ErrPacketOrder, pts, p.lastOut)
	}
	for i, s := range p.submitted {
		if s == pts {
			p.submitted = p.submitted[i+1:]
			p.lastOut = pts
			p.emitted = true
			return nil
		}
	}
	return fmt.Errorf("%w: pts %d was never submitted", ErrPacketOrder, pts)
}

// Close ends the pass and returns the statistics it gathered.
func (p *Pipeline) Close() (Statistics, error) {
	if p.state == StateIdle || p.state == StateClosed {
		return Statistics{}, nil
	}
	p.state = StateClosed

	if err := p.enc.End(); err != nil {
		return Statistics{}, fmt.Errorf("end encoder: %w", err)
	}

	if p.pass == ports.PassLast && p.expectRecords >= 0 && p.frames != p.expectRecords {
		return Statistics{}, fmt.Errorf("%w: %d statistics records, %d frames", ErrPassMismatch, p.expectRecords, p.frames)
	}

	stats := Statistics{Data: p.stats, Records: p.records}
	p.logger.Debug("Encoder closed: %d frames, %d statistics records", p.frames, p.records)
	return stats, nil
}

// Frame is one frame fed to Pass1 or Pass2.
type Frame struct {
	Image    *media.Image
	PTS      int64
	Duration int64
}

// Frames yields the frames of a pass in timestamp order.
type Frames func(ctx context.Context, yield func(Frame) error) error

// Pass1 runs the statistics pass over frames.
func (p *Pipeline) Pass1(ctx context.Context, frames Frames) (Statistics, error) {
	if err := p.Begin(ports.PassFirst, nil); err != nil {
		return Statistics{}, err
	}
	err := frames(ctx, func(f Frame) error {
		_, err := p.Encode(f.Image, f.PTS, f.Duration)
		return err
	})
	if err == nil {
		_, err = p.Flush()
	}
	stats, cerr := p.Close()
	if err != nil {
		return Statistics{}, err
	}
	return stats, cerr
}

// Pass2 replays frames with stats and hands every packet to emit.
func (p *Pipeline) Pass2(ctx context.Context, frames Frames, stats Statistics, emit func(media.Packet) error) error {
	if err := p.Begin(ports.PassLast, &stats); err != nil {
		return err
	}
	err := frames(ctx, func(f Frame) error {
		pkts, err := p.Encode(f.Image, f.PTS, f.Duration)
		if err != nil {
			return err
		}
		return emitAll(pkts, emit)
	})
	if err == nil {
		var pkts []media.Packet
		pkts, err = p.Flush()
		if err == nil {
			err = emitAll(pkts, emit)
		}
	}
	_, cerr := p.Close()
	if err != nil {
		return err
	}
	return cerr
}

func emitAll(pkts []media.Packet, emit func(media.Packet) error) error {
	for _, pkt := range pkts {
		if err := emit(pkt); err != nil {
			return err
		}
	}
	return nil
}
