// Package analyze implements the rate-control statistics pass.
package analyze

import (
	"context"
	"fmt"

	"github.com/user/webmio/pkg/adapters/memstream"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/pipeline"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/videoenc"
	"github.com/user/webmio/pkg/webm"
)

// Stage renders every frame and runs the encoder's first pass over it.
type Stage struct {
	encoder ports.VideoEncoder
	frames  ports.FrameSource
	logger  ports.Logger
}

// NewStage creates a new analyze stage.
func NewStage(encoder ports.VideoEncoder, frames ports.FrameSource, logger ports.Logger) *Stage {
	return &Stage{
		encoder: encoder,
		frames:  frames,
		logger:  logger.WithComponent("analyze"),
	}
}

// Execute runs the statistics pass.
func (s *Stage) Execute(ctx context.Context, input pipeline.AnalyzeInput) (pipeline.AnalyzeResult, error) {
	result := pipeline.AnalyzeResult{}

	if input.Timeline.FrameCount <= 0 {
		return result, fmt.Errorf("no frames to analyze")
	}

	// The statistics pass writes a header-only container to memory. A
	// finalize failure there is ignored.
	scratch := webm.NewMuxer(webm.Options{TimecodeScale: input.Timeline.TimeBase.TimecodeScale})
	if err := scratch.Init(memstream.New()); err != nil {
		return result, fmt.Errorf("init scratch container: %w", err)
	}
	if _, err := scratch.AddTrack(webm.TrackSpec{
		Kind:      media.TrackVideo,
		CodecID:   input.Video.Codec,
		Width:     input.Video.Width,
		Height:    input.Video.Height,
		FrameRate: input.Timeline.TimeBase.FrameRate,
	}); err != nil {
		return result, fmt.Errorf("add video track: %w", err)
	}
	defer func() {
		if err := scratch.Finalize(); err != nil {
			s.logger.Debug("Statistics pass container not finalized: %v", err)
		}
	}()

	enc := videoenc.New(s.encoder, input.Video, s.logger)
	frames := func(ctx context.Context, yield func(videoenc.Frame) error) error {
		n := input.Timeline.FrameCount
		for i := int64(0); i < n; i++ {
			f, err := pipeline.RenderFrame(ctx, s.frames, input.Timeline, i)
			if err != nil {
				return err
			}
			if err := yield(videoenc.Frame{Image: f.Image, PTS: f.PTS, Duration: f.Duration}); err != nil {
				return err
			}
			if err := input.Progress.Report(ctx, float64(i+1)/float64(n)); err != nil {
				return err
			}
		}
		return nil
	}

	stats, err := enc.Pass1(ctx, frames)
	if err != nil {
		return result, fmt.Errorf("statistics pass: %w", err)
	}

	result.Stats = stats
	result.Frames = int(input.Timeline.FrameCount)
	s.logger.Debug("Statistics pass done: %d frames, %d bytes", result.Frames, len(stats.Data))
	return result, nil
}
