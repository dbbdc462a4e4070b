// Package encode implements the final export pass: render, encode,
// interleave and mux.
package encode

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/audioenc"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/pipeline"
	"github.com/user/webmio/pkg/pixconv"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/videoenc"
	"github.com/user/webmio/pkg/webm"
)

// ErrNoTracks is returned when neither video nor audio is requested.
var ErrNoTracks = errors.New("encode: nothing to export")

// Stage encodes the timeline into a WebM stream.
type Stage struct {
	videoEncoder ports.VideoEncoder
	audioEncoder ports.AudioEncoder
	frames       ports.FrameSource
	samples      ports.AudioSource
	sink         ports.DebugSink
	logger       ports.Logger
}

// NewStage creates a new encode stage. The encoders and sources of a track
// that is never exported may be nil.
func NewStage(
	videoEncoder ports.VideoEncoder,
	audioEncoder ports.AudioEncoder,
	frames ports.FrameSource,
	samples ports.AudioSource,
	sink ports.DebugSink,
	logger ports.Logger,
) *Stage {
	return &Stage{
		videoEncoder: videoEncoder,
		audioEncoder: audioEncoder,
		frames:       frames,
		samples:      samples,
		sink:         sink,
		logger:       logger.WithComponent("encode"),
	}
}

// run holds the per-export state of one Execute call.
type run struct {
	in    pipeline.EncodeInput
	mux   *webm.Muxer
	video *videoenc.Pipeline
	audio *audioenc.Pipeline
	il    *interleaver

	videoTrack uint64
	audioTrack uint64
}

// Execute runs the final pass. Once the container is started it is
// finalized on every path, so a failed export leaves a playable prefix.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (result pipeline.EncodeResult, err error) {
	if input.Video == nil && input.Audio == nil {
		return result, ErrNoTracks
	}
	if input.Output == nil {
		return result, fmt.Errorf("no output stream")
	}
	if input.Timeline.FrameCount <= 0 {
		return result, fmt.Errorf("no frames to encode")
	}

	r, err := s.setup(input)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := s.teardown(r); cerr != nil && err == nil {
			err = cerr
		}
		if err == nil {
			result = s.result(r)
		}
	}()

	return result, s.encode(ctx, r)
}

func (s *Stage) setup(input pipeline.EncodeInput) (*run, error) {
	tb := input.Timeline.TimeBase
	opts := webm.DefaultOptions()
	opts.TimecodeScale = tb.TimecodeScale
	if input.WritingApp != "" {
		opts.WritingApp = input.WritingApp
	}
	opts.Logger = s.logger.WithComponent("webm")

	r := &run{in: input, mux: webm.NewMuxer(opts)}
	if err := r.mux.Init(input.Output); err != nil {
		return nil, fmt.Errorf("init container: %w", err)
	}

	sampleRate := 0
	if v := input.Video; v != nil {
		if s.videoEncoder == nil || s.frames == nil {
			return nil, fmt.Errorf("video requested without an encoder and frame source")
		}
		track, err := r.mux.AddTrack(webm.TrackSpec{
			Kind:      media.TrackVideo,
			CodecID:   v.Codec,
			Width:     v.Width,
			Height:    v.Height,
			FrameRate: tb.FrameRate,
		})
		if err != nil {
			return nil, fmt.Errorf("add video track: %w", err)
		}
		r.videoTrack = track
		r.video = videoenc.New(s.videoEncoder, *v, s.logger)
	}

	if a := input.Audio; a != nil {
		if s.audioEncoder == nil || s.samples == nil {
			return nil, fmt.Errorf("audio requested without an encoder and sample source")
		}
		settings := *a
		if settings.TotalSamples <= 0 {
			settings.TotalSamples = input.Timeline.SampleCount(settings.SampleRate)
		}
		r.audio = audioenc.New(s.audioEncoder, s.samples, settings, s.logger)
		if err := r.audio.Begin(); err != nil {
			return nil, err
		}
		ts := webm.TrackSpec{
			Kind:         media.TrackAudio,
			CodecID:      settings.Codec,
			SampleRate:   settings.SampleRate,
			Channels:     settings.Channels,
			CodecPrivate: r.audio.CodecPrivate(),
		}
		if settings.Codec == media.CodecPCMFloat {
			ts.BitDepth = 32
		}
		track, err := r.mux.AddTrack(ts)
		if err != nil {
			r.audio.End()
			return nil, fmt.Errorf("add audio track: %w", err)
		}
		r.audioTrack = track
		sampleRate = settings.SampleRate
	}

	cue := r.videoTrack
	if cue == 0 {
		cue = r.audioTrack
	}
	if err := r.mux.RegisterCuePoint(cue); err != nil {
		if r.audio != nil {
			r.audio.End()
		}
		return nil, fmt.Errorf("register cue track: %w", err)
	}

	r.il = newInterleaver(r.mux, tb, r.videoTrack, r.audioTrack, sampleRate)
	return r, nil
}

func (s *Stage) encode(ctx context.Context, r *run) error {
	in := r.in
	tb := in.Timeline.TimeBase
	n := in.Timeline.FrameCount

	if r.video != nil {
		pass := ports.PassOnly
		if in.Stats != nil {
			pass = ports.PassLast
		}
		if err := r.video.Begin(pass, in.Stats); err != nil {
			return err
		}
	}

	for i := int64(0); i < n; i++ {
		last := i == n-1

		if r.audio != nil {
			end := tb.ToContainerTimecode(tb.FrameTick(i + 1))
			pkts, err := r.audio.Window(ctx, tb.TimecodeToSample(end, r.audio.SampleRate()), last)
			if err != nil {
				return fmt.Errorf("audio window %d: %w", i, err)
			}
			r.il.pushAudio(pkts)
			if last {
				r.il.finishAudio()
			}
		}

		if r.video != nil {
			if err := s.encodeFrame(ctx, r, i); err != nil {
				return err
			}
			if last {
				pkts, err := r.video.Flush()
				if err != nil {
					return err
				}
				if err := r.il.pushVideo(pkts); err != nil {
					return err
				}
				r.il.finishVideo()
			}
		}

		if err := r.il.flush(); err != nil {
			return err
		}
		if err := in.Progress.Report(ctx, float64(i+1)/float64(n)); err != nil {
			return err
		}
	}

	if r.il.pending() > 0 {
		return fmt.Errorf("encode: %d blocks left unwritten", r.il.pending())
	}
	return nil
}

func (s *Stage) encodeFrame(ctx context.Context, r *run, i int64) error {
	f, err := pipeline.RenderFrame(ctx, s.frames, r.in.Timeline, i)
	if err != nil {
		return err
	}
	if s.sink != nil && s.sink.Enabled() {
		if err := s.sink.SaveFrame(int(i), pixconv.ToRGBA(f.Image)); err != nil {
			s.logger.Warn("Failed to save debug frame %d: %v", i, err)
		}
	}

	r.il.expect(f.PTS, f.Timecode)
	pkts, err := r.video.Encode(f.Image, f.PTS, f.Duration)
	if err != nil {
		return err
	}
	return r.il.pushVideo(pkts)
}

// teardown closes the encoders and finalizes the container.
func (s *Stage) teardown(r *run) error {
	var errs []error
	if r.video != nil {
		if _, err := r.video.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.audio != nil {
		if err := r.audio.End(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.mux.Finalize(); err != nil {
		errs = append(errs, fmt.Errorf("finalize container: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Stage) result(r *run) pipeline.EncodeResult {
	res := pipeline.EncodeResult{
		VideoFrames:  r.il.videoBlocks,
		AudioPackets: r.il.audioBlocks,
		Clusters:     r.mux.Clusters(),
		Duration:     r.mux.Duration(),
		CueTrack:     media.TrackVideo,
	}
	if r.videoTrack == 0 {
		res.CueTrack = media.TrackAudio
	}
	if r.audio != nil {
		res.AudioSamples = r.audio.Written()
	}
	if size, err := r.in.Output.Size(); err == nil {
		res.FileSize = size
	}
	return res
}
