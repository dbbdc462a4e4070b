// Package orchestrator coordinates the export passes.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/user/webmio/pkg/audioenc"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/pipeline"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/videoenc"
)

// Config contains all configuration for an export.
type Config struct {
	// Output
	OutputPath string
	WritingApp string

	// Timeline
	TicksPerSecond int64
	FrameRate      timebase.Rational
	TimecodeScale  int64
	FrameCount     int64

	// Video; FrameRate is taken from the timeline.
	ExportVideo bool
	Video       videoenc.Settings

	// Audio; TotalSamples is taken from the timeline.
	ExportAudio bool
	Audio       audioenc.Settings
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		WritingApp:     "webmio",
		TicksPerSecond: timebase.DefaultTicksPerSecond,
		FrameRate:      timebase.Rational{Num: 30, Den: 1},
		TimecodeScale:  timebase.DefaultTimecodeScale,
		FrameCount:     90,

		ExportVideo: true,
		Video: videoenc.Settings{
			Codec:        media.CodecVP9,
			Width:        640,
			Height:       360,
			RateControl:  ports.RateCQ,
			Quality:      videoenc.DefaultQuality,
			BitrateKbps:  videoenc.DefaultBitrateKbps,
			MinQuantizer: videoenc.DefaultMinQ,
			MaxQuantizer: videoenc.DefaultMaxQ,
		},

		ExportAudio: true,
		Audio: audioenc.Settings{
			Codec:      media.CodecVorbis,
			SampleRate: 48000,
			Channels:   2,
			Quality:    0.5,
		},
	}
}

// Orchestrator coordinates the statistics pass and the final pass.
type Orchestrator struct {
	analyzeStage pipeline.Stage[pipeline.AnalyzeInput, pipeline.AnalyzeResult]
	encodeStage  pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	fs           ports.FileSystem
	progress     ports.ProgressReporter
	sink         ports.DebugSink
	logger       ports.Logger
}

// New creates a new Orchestrator.
func New(
	analyzeStage pipeline.Stage[pipeline.AnalyzeInput, pipeline.AnalyzeResult],
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	fs ports.FileSystem,
	progress ports.ProgressReporter,
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		analyzeStage: analyzeStage,
		encodeStage:  encodeStage,
		fs:           fs,
		progress:     progress,
		sink:         sink,
		logger:       logger,
	}
}

// Run executes the export.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	o.logger.Info(l10n.T("Starting export"))

	if !config.ExportVideo && !config.ExportAudio {
		return RunResult{}, fmt.Errorf("nothing to export")
	}

	// 1. Time base
	tb, err := timebase.New(config.TicksPerSecond, config.FrameRate, config.TimecodeScale)
	if err != nil {
		o.logger.Error(l10n.F("Invalid time base: %s", err))
		return RunResult{}, fmt.Errorf("time base: %w", err)
	}
	timeline := pipeline.Timeline{TimeBase: tb, FrameCount: config.FrameCount}
	o.logger.Info(l10n.F("Timeline: %d frames at %s fps, %d ms", config.FrameCount, config.FrameRate, timeline.Duration()*tb.TimecodeScale/1_000_000))

	var video *videoenc.Settings
	if config.ExportVideo {
		v := config.Video
		v.FrameRate = tb.FrameRate
		video = &v
	}
	var audio *audioenc.Settings
	if config.ExportAudio {
		a := config.Audio
		a.TotalSamples = timeline.SampleCount(a.SampleRate)
		audio = &a
	}

	passes := 1
	if video != nil && video.TwoPass() {
		passes = 2
	}

	// 2. Statistics pass
	var stats *videoenc.Statistics
	if passes == 2 {
		o.logger.Info(l10n.T("Running statistics pass"))
		analyzed, err := o.analyzeStage.Execute(ctx, pipeline.AnalyzeInput{
			Timeline: timeline,
			Video:    *video,
			Progress: pipeline.Progress{Reporter: o.progress, Pass: 0, Passes: passes},
		})
		if err != nil {
			o.logger.Error(l10n.F("Statistics pass failed: %s", err))
			return RunResult{}, fmt.Errorf("analyze stage: %w", err)
		}
		stats = &analyzed.Stats
		o.logger.Info(l10n.F("Statistics pass completed: %d records", analyzed.Stats.Records))

		if o.sink.Enabled() {
			if err := o.sink.SaveStats(analyzed.Stats.Data); err != nil {
				o.logger.Warn(l10n.F("Failed to save debug output: %s", err))
			}
		}
	}

	// 3. Final pass
	out, err := o.fs.CreateStream(config.OutputPath)
	if err != nil {
		o.logger.Error(l10n.F("Failed to create output: %s", err))
		return RunResult{}, fmt.Errorf("create output: %w", err)
	}

	o.logger.Info(l10n.F("Encoding %d frames", config.FrameCount))
	encoded, err := o.encodeStage.Execute(ctx, pipeline.EncodeInput{
		Timeline:   timeline,
		Video:      video,
		Audio:      audio,
		Stats:      stats,
		Output:     out,
		WritingApp: config.WritingApp,
		Progress:   pipeline.Progress{Reporter: o.progress, Pass: passes - 1, Passes: passes},
	})
	closeErr := out.Close()
	if err != nil {
		o.logger.Error(l10n.F("Failed to encode: %s", err))
		return RunResult{}, fmt.Errorf("encode stage: %w", err)
	}
	if closeErr != nil {
		o.logger.Error(l10n.F("Failed to write output: %s", closeErr))
		return RunResult{}, fmt.Errorf("close output: %w", closeErr)
	}
	o.logger.Info(l10n.F("Container written: %d bytes, %d clusters", encoded.FileSize, encoded.Clusters))

	result := buildResult(config, passes, encoded)

	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(result, "", "  "); err == nil {
			if err := o.sink.SaveReportJSON(data); err != nil {
				o.logger.Warn(l10n.F("Failed to save debug output: %s", err))
			}
		}
	}

	o.logger.Info(l10n.T("Export completed successfully"))
	return result, nil
}

func buildResult(config Config, passes int, encoded pipeline.EncodeResult) RunResult {
	result := RunResult{
		OutputPath:   config.OutputPath,
		Passes:       passes,
		FrameRate:    config.FrameRate.String(),
		DurationMs:   encoded.Duration * config.TimecodeScale / 1_000_000,
		FileSize:     encoded.FileSize,
		Clusters:     encoded.Clusters,
		CueTrack:     encoded.CueTrack.String(),
		VideoFrames:  encoded.VideoFrames,
		AudioPackets: encoded.AudioPackets,
		AudioSamples: encoded.AudioSamples,
	}
	if config.ExportVideo {
		result.VideoCodec = config.Video.Codec
		result.Width = config.Video.Width
		result.Height = config.Video.Height
		result.RateControl = config.Video.RateControl.String()
	}
	if config.ExportAudio {
		result.AudioCodec = config.Audio.Codec
		result.SampleRate = config.Audio.SampleRate
		result.Channels = config.Audio.Channels
	}
	return result
}

// RunResult contains the results of an export for summary generation.
type RunResult struct {
	OutputPath string `json:"output"`
	Passes     int    `json:"passes"`

	// Timing information
	FrameRate  string `json:"frameRate"`
	DurationMs int64  `json:"durationMs"`

	// Container information
	FileSize int64  `json:"fileSize"`
	Clusters int    `json:"clusters"`
	CueTrack string `json:"cueTrack"`

	// Video information
	VideoCodec  string `json:"videoCodec,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	RateControl string `json:"rateControl,omitempty"`
	VideoFrames int    `json:"videoFrames"`

	// Audio information
	AudioCodec   string `json:"audioCodec,omitempty"`
	SampleRate   int    `json:"sampleRate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	AudioPackets int    `json:"audioPackets"`
	AudioSamples int64  `json:"audioSamples"`
}
