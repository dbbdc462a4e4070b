package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/audioenc"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/pixconv"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/videoenc"
)

// ErrCancelled is returned when the host cancels an export.
var ErrCancelled = errors.New("pipeline: export cancelled")

// =============================================================================
// Common Types
// =============================================================================

// Timeline is the span of the host timeline being exported.
type Timeline struct {
	TimeBase   timebase.TimeBase
	FrameCount int64
}

// EndTick returns the host tick just past the last frame.
func (t Timeline) EndTick() int64 {
	return t.TimeBase.FrameTick(t.FrameCount)
}

// Duration returns the length of the timeline in container timecode units.
func (t Timeline) Duration() int64 {
	return t.TimeBase.ToContainerTimecode(t.EndTick())
}

// SampleCount returns the number of audio samples covering the timeline.
func (t Timeline) SampleCount(sampleRate int) int64 {
	return t.TimeBase.TickToSample(t.EndTick(), sampleRate)
}

// Progress reports the completed fraction of one pass to the host.
type Progress struct {
	Reporter ports.ProgressReporter
	Pass     int // zero based
	Passes   int
}

// Fraction maps the fraction of the current pass onto the whole export.
func (p Progress) Fraction(frac float64) float64 {
	if p.Passes <= 1 {
		return frac
	}
	return frac/float64(p.Passes) + float64(p.Pass)/float64(p.Passes)
}

// Report sends progress and blocks while the host keeps the export suspended.
func (p Progress) Report(ctx context.Context, frac float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Reporter == nil {
		return nil
	}
	switch p.Reporter.ReportProgress(p.Fraction(frac)) {
	case ports.ProgressSuspend:
		if err := p.Reporter.WaitForResume(ctx); err != nil {
			return fmt.Errorf("wait for resume: %w", err)
		}
	case ports.ProgressCancel:
		return ErrCancelled
	}
	return nil
}

// RenderedFrame is one host frame converted for the encoder.
type RenderedFrame struct {
	Index    int64
	Tick     int64
	Timecode int64
	PTS      int64
	Duration int64
	Image    *media.Image
}

// RenderFrame renders frame i of the timeline and converts it to I420.
func RenderFrame(ctx context.Context, src ports.FrameSource, tl Timeline, i int64) (RenderedFrame, error) {
	tb := tl.TimeBase
	tick := tb.FrameTick(i)
	pts, dur, err := tb.FrameDuration(tick, tb.FrameTick(i+1))
	if err != nil {
		return RenderedFrame{}, err
	}

	raw, err := src.RenderVideoFrame(ctx, tick)
	if err != nil {
		return RenderedFrame{}, fmt.Errorf("render frame %d: %w", i, err)
	}
	img, err := pixconv.Convert(raw)
	if err != nil {
		return RenderedFrame{}, fmt.Errorf("convert frame %d: %w", i, err)
	}

	return RenderedFrame{
		Index:    i,
		Tick:     tick,
		Timecode: tb.ToContainerTimecode(tick),
		PTS:      pts,
		Duration: dur,
		Image:    img,
	}, nil
}

// =============================================================================
// Analyze Stage Types
// =============================================================================

// AnalyzeInput contains parameters for the statistics pass.
type AnalyzeInput struct {
	Timeline Timeline
	Video    videoenc.Settings
	Progress Progress
}

// AnalyzeResult contains the first pass statistics.
type AnalyzeResult struct {
	Stats  videoenc.Statistics
	Frames int
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for the final pass.
type EncodeInput struct {
	Timeline Timeline

	// Video is nil for an audio-only export.
	Video *videoenc.Settings
	// Audio is nil for a video-only export. TotalSamples is filled from the
	// timeline when zero.
	Audio *audioenc.Settings

	// Stats holds first pass statistics for a two-pass export.
	Stats *videoenc.Statistics

	Output     ports.ByteStream
	WritingApp string
	Progress   Progress
}

// EncodeResult contains the statistics of the written file.
type EncodeResult struct {
	VideoFrames  int
	AudioPackets int
	AudioSamples int64
	Clusters     int
	Duration     int64 // container timecode units
	FileSize     int64
	CueTrack     media.TrackKind
}
