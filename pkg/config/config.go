// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/webmio/pkg/adapters/ggrenderer"
	"github.com/user/webmio/pkg/adapters/tonesource"
	"github.com/user/webmio/pkg/audioenc"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/orchestrator"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/videoenc"
)

// Config represents the full configuration for an export.
type Config struct {
	OutputPath string `yaml:"output"`
	WritingApp string `yaml:"writing_app"`

	Timeline TimelineConfig `yaml:"timeline"`
	Video    VideoConfig    `yaml:"video"`
	Audio    AudioConfig    `yaml:"audio"`
	Source   SourceConfig   `yaml:"source"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// TimelineConfig describes the host timeline.
type TimelineConfig struct {
	// FrameRate is a ratio ("30000/1001") or a decimal ("29.97").
	FrameRate      string `yaml:"frame_rate"`
	Frames         int64  `yaml:"frames"`
	TicksPerSecond int64  `yaml:"ticks_per_second"`
	TimecodeScale  int64  `yaml:"timecode_scale"`
}

// VideoConfig represents the video track settings.
type VideoConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Codec           string `yaml:"codec"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	RateControl     string `yaml:"rate_control"`
	Quality         int    `yaml:"quality"`
	Bitrate         int    `yaml:"bitrate"`
	MinQuantizer    int    `yaml:"min_quantizer"`
	MaxQuantizer    int    `yaml:"max_quantizer"`
	KeyframeMaxDist int    `yaml:"keyframe_max_dist"`
	Deadline        string `yaml:"deadline"`

	// Controls are codec tuning values, e.g. {cpu-used: 2, sharpness: 3}.
	Controls map[string]int `yaml:"controls"`
}

// AudioConfig represents the audio track settings.
type AudioConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Codec      string  `yaml:"codec"`
	SampleRate int     `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`
	Quality    float32 `yaml:"quality"`
	Bitrate    int     `yaml:"bitrate"`
}

// SourceConfig styles the synthetic host.
type SourceConfig struct {
	PixelFormat string  `yaml:"pixel_format"`
	Title       string  `yaml:"title"`
	Background  string  `yaml:"background_color"`
	Foreground  string  `yaml:"foreground_color"`
	Image       string  `yaml:"image"`
	Frequency   float64 `yaml:"tone_frequency"`
	Amplitude   float64 `yaml:"tone_amplitude"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		OutputPath: "output.webm",
		WritingApp: "webmio",

		Timeline: TimelineConfig{
			FrameRate:      "30",
			Frames:         90,
			TicksPerSecond: timebase.DefaultTicksPerSecond,
			TimecodeScale:  timebase.DefaultTimecodeScale,
		},

		Video: VideoConfig{
			Enabled:      true,
			Codec:        "vp9",
			Width:        640,
			Height:       360,
			RateControl:  "cq",
			Quality:      videoenc.DefaultQuality,
			Bitrate:      videoenc.DefaultBitrateKbps,
			MinQuantizer: videoenc.DefaultMinQ,
			MaxQuantizer: videoenc.DefaultMaxQ,
			Deadline:     "good",
		},

		Audio: AudioConfig{
			Enabled:    true,
			Codec:      "vorbis",
			SampleRate: 48000,
			Channels:   2,
			Quality:    0.5,
			Bitrate:    128,
		},

		Source: SourceConfig{
			PixelFormat: "bgra8",
			Title:       "webmio",
			Background:  "#202030",
			Foreground:  "#ffffff",
			Frequency:   440,
			Amplitude:   0.25,
		},

		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ParseFrameRate parses "num/den" or a decimal rate.
func ParseFrameRate(s string) (timebase.Rational, error) {
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return timebase.Rational{}, fmt.Errorf("frame rate %q: %w", s, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return timebase.Rational{}, fmt.Errorf("frame rate %q: %w", s, err)
		}
		if n <= 0 || d <= 0 {
			return timebase.Rational{}, fmt.Errorf("frame rate %q: must be positive", s)
		}
		return timebase.Rational{Num: n, Den: d}.Reduce(), nil
	}
	fps, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return timebase.Rational{}, fmt.Errorf("frame rate %q: %w", s, err)
	}
	rate := timebase.FrameRateFromFloat(fps)
	if rate.Num <= 0 {
		return timebase.Rational{}, fmt.Errorf("frame rate %q: must be positive", s)
	}
	return rate, nil
}

// VideoCodecID maps a short codec name to its container codec id.
func VideoCodecID(name string) (string, error) {
	switch strings.ToLower(name) {
	case "vp9":
		return media.CodecVP9, nil
	case "vp8":
		return media.CodecVP8, nil
	case "raw", "uncompressed":
		return media.CodecUncompressed, nil
	}
	if media.IsVideoCodec(name) {
		return name, nil
	}
	return "", fmt.Errorf("unknown video codec %q", name)
}

// AudioCodecID maps a short codec name to its container codec id.
func AudioCodecID(name string) (string, error) {
	switch strings.ToLower(name) {
	case "vorbis":
		return media.CodecVorbis, nil
	case "pcm", "float":
		return media.CodecPCMFloat, nil
	}
	if media.IsAudioCodec(name) {
		return name, nil
	}
	return "", fmt.Errorf("unknown audio codec %q", name)
}

// ParseRateControl parses cq, cbr or vbr.
func ParseRateControl(s string) (ports.RateControl, error) {
	switch strings.ToLower(s) {
	case "", "cq":
		return ports.RateCQ, nil
	case "cbr":
		return ports.RateCBR, nil
	case "vbr":
		return ports.RateVBR, nil
	}
	return ports.RateCQ, fmt.Errorf("unknown rate control %q", s)
}

// ParseDeadline parses realtime, good or best.
func ParseDeadline(s string) (ports.Deadline, error) {
	switch strings.ToLower(s) {
	case "", "good":
		return ports.DeadlineGood, nil
	case "realtime", "rt":
		return ports.DeadlineRealtime, nil
	case "best":
		return ports.DeadlineBest, nil
	}
	return ports.DeadlineGood, fmt.Errorf("unknown deadline %q", s)
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	if len(hex) == 0 {
		return color.Black
	}

	if hex[0] == '#' {
		hex = hex[1:]
	}

	if len(hex) != 6 {
		return color.Black
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(threads int) (orchestrator.Config, error) {
	rate, err := ParseFrameRate(c.Timeline.FrameRate)
	if err != nil {
		return orchestrator.Config{}, err
	}

	out := orchestrator.Config{
		OutputPath:     c.OutputPath,
		WritingApp:     c.WritingApp,
		TicksPerSecond: c.Timeline.TicksPerSecond,
		FrameRate:      rate,
		TimecodeScale:  c.Timeline.TimecodeScale,
		FrameCount:     c.Timeline.Frames,
		ExportVideo:    c.Video.Enabled,
		ExportAudio:    c.Audio.Enabled,
	}

	if c.Video.Enabled {
		codec, err := VideoCodecID(c.Video.Codec)
		if err != nil {
			return orchestrator.Config{}, err
		}
		rc, err := ParseRateControl(c.Video.RateControl)
		if err != nil {
			return orchestrator.Config{}, err
		}
		deadline, err := ParseDeadline(c.Video.Deadline)
		if err != nil {
			return orchestrator.Config{}, err
		}
		out.Video = videoenc.Settings{
			Codec:           codec,
			Width:           c.Video.Width,
			Height:          c.Video.Height,
			RateControl:     rc,
			Quality:         c.Video.Quality,
			BitrateKbps:     c.Video.Bitrate,
			MinQuantizer:    c.Video.MinQuantizer,
			MaxQuantizer:    c.Video.MaxQuantizer,
			KeyframeMaxDist: c.Video.KeyframeMaxDist,
			Deadline:        deadline,
			Controls:        c.Video.Controls,
			Threads:         threads,
		}
	}

	if c.Audio.Enabled {
		codec, err := AudioCodecID(c.Audio.Codec)
		if err != nil {
			return orchestrator.Config{}, err
		}
		out.Audio = audioenc.Settings{
			Codec:       codec,
			SampleRate:  c.Audio.SampleRate,
			Channels:    c.Audio.Channels,
			Quality:     c.Audio.Quality,
			BitrateKbps: c.Audio.Bitrate,
		}
	}

	return out, nil
}

// RendererOptions returns the test card settings for the synthetic host.
func (c Config) RendererOptions() ggrenderer.Options {
	return ggrenderer.Options{
		Width:          c.Video.Width,
		Height:         c.Video.Height,
		TicksPerSecond: c.Timeline.TicksPerSecond,
		Format:         media.ParsePixelFormat(c.Source.PixelFormat),
		Title:          c.Source.Title,
		Background:     ParseColor(c.Source.Background),
		Foreground:     ParseColor(c.Source.Foreground),
	}
}

// ToneOptions returns the tone settings for the synthetic host.
func (c Config) ToneOptions() tonesource.Options {
	return tonesource.Options{
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
		Frequency:  c.Source.Frequency,
		Amplitude:  c.Source.Amplitude,
	}
}
