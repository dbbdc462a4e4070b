package timebase

import (
	"fmt"
	"math"
)

// Rational is an exact ratio such as a frame rate.
type Rational struct {
	Num int64
	Den int64
}

// String returns "num/den".
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Float returns the ratio as a float64. Only for display and estimation.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Reduce divides both terms by their greatest common divisor.
func (r Rational) Reduce() Rational {
	a, b := r.Num, r.Den
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return r
	}
	return Rational{Num: r.Num / a, Den: r.Den / a}
}

// Equal reports whether two ratios describe the same value.
func (r Rational) Equal(o Rational) bool {
	return r.Num*o.Den == o.Num*r.Den
}

// StandardRates lists the frame rates recognised exactly. Earlier entries win ties.
var StandardRates = []Rational{
	{10, 1},
	{15, 1},
	{24000, 1001},
	{24, 1},
	{25, 1},
	{30000, 1001},
	{30, 1},
	{50, 1},
	{60000, 1001},
	{60, 1},
}

const (
	rateEpsilon   = 0.01
	guessMaxFrame = 50
	guessMaxNanos = nanosPerSecond
)

// FrameRateFromTicks finds the frame rate for a host frame duration.
// Unknown durations fall back to a millirational approximation.
func FrameRateFromTicks(ticksPerSecond, ticksPerFrame int64) Rational {
	if ticksPerFrame <= 0 {
		return Rational{}
	}
	for _, r := range StandardRates {
		if ticksPerSecond/r.Num*r.Den == ticksPerFrame {
			return r
		}
	}
	return Rational{
		Num: mulAddDiv(1000, ticksPerSecond, ticksPerFrame/2, ticksPerFrame),
		Den: 1000,
	}
}

// FrameRateFromFloat returns the nearest standard rate within 0.01 fps,
// or a millirational approximation.
func FrameRateFromFloat(fps float64) Rational {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return Rational{}
	}
	best := -1
	bestEps := math.MaxFloat64
	for i, r := range StandardRates {
		eps := math.Abs(fps - r.Float())
		if eps < bestEps {
			best = i
			bestEps = eps
		}
	}
	if best >= 0 && bestEps < rateEpsilon {
		return StandardRates[best]
	}
	return Rational{Num: int64(fps*1000 + 0.5), Den: 1000}
}

// FrameRateFromDefaultDuration derives a frame rate from a per-frame duration in nanoseconds.
func FrameRateFromDefaultDuration(ns int64) Rational {
	if ns <= 0 {
		return Rational{}
	}
	return FrameRateFromFloat(float64(nanosPerSecond) / float64(ns))
}

// GuessFrameRate estimates the frame rate from video presentation times in nanoseconds.
// At most the first 50 frames or first second are considered.
func GuessFrameRate(timestamps []int64) Rational {
	frames := 0
	var last int64
	for _, ts := range timestamps {
		if frames >= guessMaxFrame || last >= guessMaxNanos {
			break
		}
		last = ts
		frames++
	}
	if frames < 2 || last <= 0 {
		return Rational{}
	}
	fps := float64(frames-1) * float64(nanosPerSecond) / float64(last)
	return FrameRateFromFloat(fps)
}
