package main

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/webmio/pkg/adapters/filesink"
	"github.com/user/webmio/pkg/adapters/ggrenderer"
	"github.com/user/webmio/pkg/adapters/nullsink"
	"github.com/user/webmio/pkg/adapters/osfilesystem"
	"github.com/user/webmio/pkg/adapters/smartencoder"
	"github.com/user/webmio/pkg/adapters/tonesource"
	"github.com/user/webmio/pkg/config"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/orchestrator"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/stages/analyze"
	"github.com/user/webmio/pkg/stages/encode"
	"github.com/user/webmio/pkg/summarizer"
)

func exportCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    l10n.T("YAML configuration file"),
			Category: l10n.T(categoryOutput),
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output WebM file path"),
			Category: l10n.T(categoryOutput),
		},
		&cli.StringFlag{
			Name:     "summary",
			Usage:    l10n.T("Output export summary to file (Markdown format)"),
			Category: l10n.T(categoryOutput),
		},

		&cli.StringFlag{
			Name:     "fps",
			Usage:    l10n.T("Frame rate (e.g., 30, 29.97, 30000/1001)"),
			Category: l10n.T(categoryTimeline),
		},
		&cli.Int64Flag{
			Name:     "frames",
			Aliases:  []string{"n"},
			Usage:    l10n.T("Number of frames to export"),
			Category: l10n.T(categoryTimeline),
		},

		&cli.BoolFlag{
			Name:     "no-video",
			Usage:    l10n.T("Do not export a video track"),
			Category: l10n.T(categoryVideo),
		},
		&cli.StringFlag{
			Name:     "video-codec",
			Usage:    l10n.T("Video codec (vp9, vp8, raw)"),
			Category: l10n.T(categoryVideo),
		},
		&cli.IntFlag{
			Name:     "width",
			Aliases:  []string{"W"},
			Usage:    l10n.T("Output video width"),
			Category: l10n.T(categoryVideo),
		},
		&cli.IntFlag{
			Name:     "height",
			Aliases:  []string{"H"},
			Usage:    l10n.T("Output video height"),
			Category: l10n.T(categoryVideo),
		},
		&cli.StringFlag{
			Name:     "rate-control",
			Usage:    l10n.T("Rate control (cq, cbr, vbr)"),
			Category: l10n.T(categoryVideo),
		},
		&cli.IntFlag{
			Name:     "quality",
			Aliases:  []string{"q"},
			Usage:    l10n.T("Video quality (0-100, higher is better)"),
			Category: l10n.T(categoryVideo),
		},
		&cli.IntFlag{
			Name:     "bitrate",
			Usage:    l10n.T("Video bitrate in kbps for cbr and vbr"),
			Category: l10n.T(categoryVideo),
		},
		&cli.IntFlag{
			Name:     "keyframe-max-dist",
			Usage:    l10n.T("Maximum distance between key frames (0 = encoder default)"),
			Category: l10n.T(categoryVideo),
		},
		&cli.StringFlag{
			Name:     "deadline",
			Usage:    l10n.T("Encoding deadline (realtime, good, best)"),
			Category: l10n.T(categoryVideo),
		},
		&cli.StringSliceFlag{
			Name:     "control",
			Usage:    l10n.T("Encoder control as name=value, repeatable (e.g., cpu-used=8)"),
			Category: l10n.T(categoryVideo),
		},
		&cli.BoolFlag{
			Name:     "allow-fallback",
			Value:    true,
			Usage:    l10n.T("Fall back to uncompressed codecs when a codec library is not built in"),
			Category: l10n.T(categoryVideo),
		},

		&cli.BoolFlag{
			Name:     "no-audio",
			Usage:    l10n.T("Do not export an audio track"),
			Category: l10n.T(categoryAudio),
		},
		&cli.StringFlag{
			Name:     "audio-codec",
			Usage:    l10n.T("Audio codec (vorbis, pcm)"),
			Category: l10n.T(categoryAudio),
		},
		&cli.IntFlag{
			Name:     "sample-rate",
			Usage:    l10n.T("Audio sample rate in Hz"),
			Category: l10n.T(categoryAudio),
		},
		&cli.IntFlag{
			Name:     "channels",
			Usage:    l10n.T("Number of audio channels"),
			Category: l10n.T(categoryAudio),
		},

		&cli.StringFlag{
			Name:     "title",
			Usage:    l10n.T("Title drawn on the test card"),
			Category: l10n.T(categorySource),
		},
		&cli.StringFlag{
			Name:     "image",
			Usage:    l10n.T("Still image shown instead of the test card"),
			Category: l10n.T(categorySource),
		},
		&cli.StringFlag{
			Name:     "pixel-format",
			Usage:    l10n.T("Pixel format handed to the encoder (i420, bgra8, bgra16)"),
			Category: l10n.T(categorySource),
		},
		&cli.Float64Flag{
			Name:     "tone",
			Usage:    l10n.T("Test tone frequency in Hz"),
			Category: l10n.T(categorySource),
		},

		&cli.BoolFlag{
			Name:     "debug",
			Aliases:  []string{"d"},
			Usage:    l10n.T("Enable debug output"),
			Category: l10n.T(categoryDebug),
		},
		&cli.StringFlag{
			Name:     "debug-dir",
			Usage:    l10n.T("Directory for debug output"),
			Category: l10n.T(categoryDebug),
		},
	}

	return &cli.Command{
		Name:        "export",
		Usage:       l10n.T("Export a synthetic clip as WebM"),
		Description: l10n.T("Render a test card and tone and encode them into a WebM file."),
		Flags:       append(flags, loggingFlags()...),
		Action:      runExport,
	}
}

// exportConfig loads the config file, if any, and applies flag overrides.
func exportConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("fps") {
		cfg.Timeline.FrameRate = c.String("fps")
	}
	if c.IsSet("frames") {
		cfg.Timeline.Frames = c.Int64("frames")
	}

	if c.Bool("no-video") {
		cfg.Video.Enabled = false
	}
	if c.IsSet("video-codec") {
		cfg.Video.Codec = c.String("video-codec")
	}
	if c.IsSet("width") {
		cfg.Video.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Video.Height = c.Int("height")
	}
	if c.IsSet("rate-control") {
		cfg.Video.RateControl = c.String("rate-control")
	}
	if c.IsSet("quality") {
		cfg.Video.Quality = c.Int("quality")
	}
	if c.IsSet("bitrate") {
		cfg.Video.Bitrate = c.Int("bitrate")
	}
	if c.IsSet("keyframe-max-dist") {
		cfg.Video.KeyframeMaxDist = c.Int("keyframe-max-dist")
	}
	if c.IsSet("deadline") {
		cfg.Video.Deadline = c.String("deadline")
	}
	if c.IsSet("control") {
		controls, err := parseControls(c.StringSlice("control"))
		if err != nil {
			return cfg, err
		}
		if cfg.Video.Controls == nil {
			cfg.Video.Controls = map[string]int{}
		}
		for name, value := range controls {
			cfg.Video.Controls[name] = value
		}
	}

	if c.Bool("no-audio") {
		cfg.Audio.Enabled = false
	}
	if c.IsSet("audio-codec") {
		cfg.Audio.Codec = c.String("audio-codec")
	}
	if c.IsSet("sample-rate") {
		cfg.Audio.SampleRate = c.Int("sample-rate")
	}
	if c.IsSet("channels") {
		cfg.Audio.Channels = c.Int("channels")
	}

	if c.IsSet("title") {
		cfg.Source.Title = c.String("title")
	}
	if c.IsSet("image") {
		cfg.Source.Image = c.String("image")
	}
	if c.IsSet("pixel-format") {
		cfg.Source.PixelFormat = c.String("pixel-format")
	}
	if c.IsSet("tone") {
		cfg.Source.Frequency = c.Float64("tone")
	}

	if c.Bool("debug") {
		cfg.Debug = true
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}

	return cfg, nil
}

// parseControls reads name=value pairs given with --control.
func parseControls(pairs []string) (map[string]int, error) {
	controls := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid control %q: want name=value", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid control %q: %w", pair, err)
		}
		controls[name] = n
	}
	return controls, nil
}

// frameSource returns the still image source when one is configured and
// the animated test card otherwise.
func frameSource(cfg config.Config) (ports.FrameSource, error) {
	if cfg.Source.Image == "" {
		return ggrenderer.New(cfg.RendererOptions()), nil
	}
	img, err := gg.LoadImage(cfg.Source.Image)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	still, err := ggrenderer.NewStill(img, cfg.Video.Width, cfg.Video.Height, media.ParsePixelFormat(cfg.Source.PixelFormat))
	if err != nil {
		return nil, err
	}
	return still, nil
}

func runExport(c *cli.Context) error {
	cfg, err := exportConfig(c)
	if err != nil {
		return err
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	orchConfig, err := cfg.ToOrchestratorConfig(runtime.NumCPU())
	if err != nil {
		return err
	}

	// Create adapters
	fs := osfilesystem.New()
	encOpts := smartencoder.Options{
		AllowFallback: c.Bool("allow-fallback"),
		Logger:        log,
	}

	var (
		videoEncoder   ports.VideoEncoder
		analyzeEncoder ports.VideoEncoder
		audioEncoder   ports.AudioEncoder
		frames         ports.FrameSource
		samples        ports.AudioSource
	)

	if orchConfig.ExportVideo {
		var info smartencoder.Info
		videoEncoder, info, err = smartencoder.NewVideo(orchConfig.Video.Codec, encOpts)
		if err != nil {
			return err
		}
		orchConfig.Video.Codec = info.Codec
		// The statistics pass runs on its own encoder instance.
		analyzeEncoder, _, err = smartencoder.NewVideo(info.Codec, encOpts)
		if err != nil {
			return err
		}
		if frames, err = frameSource(cfg); err != nil {
			return err
		}
	}

	if orchConfig.ExportAudio {
		var info smartencoder.Info
		audioEncoder, info, err = smartencoder.NewAudio(orchConfig.Audio.Codec, encOpts)
		if err != nil {
			return err
		}
		orchConfig.Audio.Codec = info.Codec
		tone, err := tonesource.New(cfg.ToneOptions())
		if err != nil {
			return err
		}
		samples = tone
	}

	// Create debug sink
	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs)
	} else {
		sink = nullsink.New()
	}

	// Create stages
	analyzeStage := analyze.NewStage(analyzeEncoder, frames, log)
	encodeStage := encode.NewStage(videoEncoder, audioEncoder, frames, samples, sink, log)

	orch := orchestrator.New(
		analyzeStage,
		encodeStage,
		fs,
		newConsoleProgress(c.Bool("quiet")),
		sink,
		log,
	)

	result, err := orch.Run(ctx, orchConfig)
	if err != nil {
		return err
	}

	log.Info(l10n.F("Output saved to %s", cfg.OutputPath))

	if path := c.String("summary"); path != "" {
		summary := summarizer.NewBuilder().
			WithTitle(l10n.T("Export Summary")).
			WithRunResult(result).
			Build()
		writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(summarizer.WithVersion(version)), fs)
		if err := writer.Write(path, summary); err != nil {
			log.Warn(l10n.F("Failed to write summary: %s", err))
		} else {
			log.Info(l10n.F("Summary saved to %s", path))
		}
	}

	return nil
}
