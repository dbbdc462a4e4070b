// Package timebase converts between host ticks, codec timestamps and container timecodes.
package timebase

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	// DefaultTimecodeScale is the container timecode unit in nanoseconds (1 ms).
	DefaultTimecodeScale int64 = 1_000_000

	// DefaultTicksPerSecond is the host tick rate used when none is supplied.
	DefaultTicksPerSecond int64 = 254016000000

	nanosPerSecond int64 = 1_000_000_000
)

var (
	// ErrZeroDuration is returned when two frame boundaries map to the same codec timestamp.
	ErrZeroDuration = errors.New("timebase: frame duration is not positive")

	// ErrInvalid is returned for a time base with non-positive parameters.
	ErrInvalid = errors.New("timebase: invalid time base")
)

// TimeBase holds the three clocks of a session.
type TimeBase struct {
	TicksPerSecond int64
	FrameRate      Rational
	TimecodeScale  int64
}

// New creates a TimeBase and validates it.
func New(ticksPerSecond int64, rate Rational, timecodeScale int64) (TimeBase, error) {
	tb := TimeBase{
		TicksPerSecond: ticksPerSecond,
		FrameRate:      rate,
		TimecodeScale:  timecodeScale,
	}
	if err := tb.Validate(); err != nil {
		return TimeBase{}, err
	}
	return tb, nil
}

// Validate checks that every parameter is usable.
func (tb TimeBase) Validate() error {
	if tb.TicksPerSecond <= 0 || tb.FrameRate.Num <= 0 || tb.FrameRate.Den <= 0 {
		return fmt.Errorf("%w: tps=%d rate=%s", ErrInvalid, tb.TicksPerSecond, tb.FrameRate)
	}
	if tb.TimecodeScale <= 0 || tb.TimecodeScale > nanosPerSecond || nanosPerSecond%tb.TimecodeScale != 0 {
		return fmt.Errorf("%w: timecode scale %d", ErrInvalid, tb.TimecodeScale)
	}
	return nil
}

// quantum is the number of timecode units per second.
func (tb TimeBase) quantum() int64 {
	return nanosPerSecond / tb.TimecodeScale
}

// CodecTimebase returns the encoder timebase (seconds per codec tick).
func (tb TimeBase) CodecTimebase() Rational {
	return Rational{Num: tb.FrameRate.Den, Den: tb.FrameRate.Num}
}

// TicksPerFrame returns the host ticks spanned by one frame, truncated.
func (tb TimeBase) TicksPerFrame() int64 {
	return mulDiv(tb.TicksPerSecond, tb.FrameRate.Den, tb.FrameRate.Num)
}

// FrameTick returns the host tick at which frame i starts.
func (tb TimeBase) FrameTick(i int64) int64 {
	return i * tb.TicksPerFrame()
}

// ToCodecTimestamp maps a host tick to the codec timestamp, truncating.
func (tb TimeBase) ToCodecTimestamp(tick int64) int64 {
	return mulDiv(tick, tb.FrameRate.Num, tb.TicksPerSecond*tb.FrameRate.Den)
}

// FrameDuration returns the codec duration between two boundaries.
func (tb TimeBase) FrameDuration(tick, next int64) (ts, dur int64, err error) {
	ts = tb.ToCodecTimestamp(tick)
	dur = tb.ToCodecTimestamp(next) - ts
	if dur <= 0 {
		return ts, dur, fmt.Errorf("%w: ticks %d..%d", ErrZeroDuration, tick, next)
	}
	return ts, dur, nil
}

// ToContainerTimecode maps a host tick to the nearest container timecode.
func (tb TimeBase) ToContainerTimecode(tick int64) int64 {
	return mulAddDiv(tick, tb.quantum(), tb.TicksPerSecond/2, tb.TicksPerSecond)
}

// ToHostTick maps a container timecode back to the nearest host tick.
func (tb TimeBase) ToHostTick(timecode int64) int64 {
	q := tb.quantum()
	return mulAddDiv(timecode, tb.TicksPerSecond, q/2, q)
}

// TimecodeToNanos converts a container timecode to nanoseconds.
func (tb TimeBase) TimecodeToNanos(timecode int64) int64 {
	return timecode * tb.TimecodeScale
}

// NanosToTimecode rounds nanoseconds to the nearest container timecode.
func (tb TimeBase) NanosToTimecode(ns int64) int64 {
	return (ns + tb.TimecodeScale/2) / tb.TimecodeScale
}

// SampleToTimecode returns the timecode of an audio sample position.
func (tb TimeBase) SampleToTimecode(sample int64, sampleRate int) int64 {
	return mulAddDiv(sample, tb.quantum(), int64(sampleRate)/2, int64(sampleRate))
}

// TimecodeToSample returns the sample position at a timecode, truncating.
func (tb TimeBase) TimecodeToSample(timecode int64, sampleRate int) int64 {
	return mulDiv(timecode*tb.TimecodeScale, int64(sampleRate), nanosPerSecond)
}

// TickToSample returns the sample position at a host tick, truncating.
func (tb TimeBase) TickToSample(tick int64, sampleRate int) int64 {
	return mulDiv(tick, int64(sampleRate), tb.TicksPerSecond)
}

// FrameIndex returns the frame number for a presentation time in nanoseconds.
func FrameIndex(ns int64, rate Rational) int64 {
	return (mulDiv(ns, rate.Num, rate.Den) + nanosPerSecond/2) / nanosPerSecond
}

// mulDiv computes a*b/c with a 128-bit intermediate. Operands must be non-negative.
func mulDiv(a, b, c int64) int64 {
	return mulAddDiv(a, b, 0, c)
}

// mulAddDiv computes (a*b+add)/c with a 128-bit intermediate. Negative a rounds
// symmetrically so that ticks before zero mirror ticks after it.
func mulAddDiv(a, b, add, c int64) int64 {
	if a < 0 {
		return -mulAddDiv(-a, b, add, c)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	lo, carry := bits.Add64(lo, uint64(add), 0)
	hi += carry
	q, _ := bits.Div64(hi, lo, uint64(c))
	return int64(q)
}
