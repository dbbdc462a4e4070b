package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/webmio/pkg/adapters/framecache"
	"github.com/user/webmio/pkg/adapters/osfilesystem"
	"github.com/user/webmio/pkg/importer"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/pixconv"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/summarizer"
)

// audioChunk is the number of samples per channel read at a time.
const audioChunk = 4096

func infoCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "format",
			Aliases:  []string{"f"},
			Value:    "text",
			Usage:    l10n.T("Summary format (text, markdown)"),
			Category: l10n.T(categoryOutput),
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Write the summary to a file instead of stdout"),
			Category: l10n.T(categoryOutput),
		},
	}
	return &cli.Command{
		Name:      "info",
		Usage:     l10n.T("Show information about a WebM file"),
		ArgsUsage: "FILE",
		Flags:     append(flags, loggingFlags()...),
		Action:    runInfo,
	}
}

func frameCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output PNG path; %d is replaced by the frame index"),
			Required: true,
			Category: l10n.T(categoryOutput),
		},
		&cli.IntFlag{
			Name:     "count",
			Value:    1,
			Usage:    l10n.T("Number of consecutive frames to extract"),
			Category: l10n.T(categoryOutput),
		},
		&cli.IntFlag{
			Name:     "cache-mb",
			Value:    256,
			Usage:    l10n.T("Decoded frame cache size in megabytes"),
			Category: l10n.T(categoryDebug),
		},
	}
	return &cli.Command{
		Name:      "frame",
		Usage:     l10n.T("Extract video frames as PNG"),
		ArgsUsage: "FILE INDEX",
		Flags:     append(flags, loggingFlags()...),
		Action:    runFrame,
	}
}

func audioCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output file for interleaved little-endian float32 samples"),
			Required: true,
			Category: l10n.T(categoryOutput),
		},
		&cli.Int64Flag{
			Name:     "start",
			Usage:    l10n.T("First sample to extract"),
			Category: l10n.T(categoryAudio),
		},
		&cli.Int64Flag{
			Name:     "count",
			Value:    -1,
			Usage:    l10n.T("Number of samples to extract (-1 = to the end)"),
			Category: l10n.T(categoryAudio),
		},
	}
	return &cli.Command{
		Name:      "audio",
		Usage:     l10n.T("Extract audio samples as raw float32"),
		ArgsUsage: "FILE",
		Flags:     append(flags, loggingFlags()...),
		Action:    runAudio,
	}
}

// openSource opens path and imports it. The caller closes the stream.
func openSource(fs ports.FileSystem, path string, opts importer.Options) (*importer.Source, ports.ByteStream, error) {
	stream, err := fs.OpenStream(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	src, err := importer.Open(stream, opts)
	if err != nil {
		stream.Close()
		return nil, nil, err
	}
	return src, stream, nil
}

func runInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%s", l10n.T("FILE argument is required"))
	}
	path := c.Args().First()
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	fs := osfilesystem.New()

	src, stream, err := openSource(fs, path, importer.Options{Logger: log})
	if err != nil {
		return err
	}
	defer stream.Close()

	size, err := stream.Size()
	if err != nil {
		return err
	}
	summary := summarizer.NewBuilder().WithSource(path, size, src).Build()

	var formatter summarizer.Formatter
	switch c.String("format") {
	case "markdown", "md":
		formatter = summarizer.NewMarkdownFormatter(summarizer.WithVersion(version))
	case "text":
		formatter = summarizer.NewTextFormatter(summarizer.WithVersion(version))
	default:
		return fmt.Errorf("unknown format %q", c.String("format"))
	}

	if out := c.String("output"); out != "" {
		if err := summarizer.NewWriter(formatter, fs).Write(out, summary); err != nil {
			return err
		}
		log.Info(l10n.F("Summary saved to %s", out))
		return nil
	}
	fmt.Fprint(c.App.Writer, formatter.Format(summary))
	return nil
}

// framePath expands the output pattern for frame index.
func framePath(pattern string, index int64, count int) string {
	if strings.Contains(pattern, "%") {
		return fmt.Sprintf(pattern, index)
	}
	if count == 1 {
		return pattern
	}
	ext := ".png"
	base := strings.TrimSuffix(pattern, ext)
	return fmt.Sprintf("%s-%05d%s", base, index, ext)
}

func runFrame(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("%s", l10n.T("FILE and INDEX arguments are required"))
	}
	path := c.Args().Get(0)
	first, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("frame index: %w", err)
	}
	count := c.Int("count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1")
	}

	log, err := newLogger(c)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	fs := osfilesystem.New()
	cache := framecache.New(c.Int("cache-mb") << 20)
	src, stream, err := openSource(fs, path, importer.Options{
		SourceID: path,
		Cache:    cache,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	frames, err := src.Frames()
	if err != nil {
		return err
	}

	for i := first; i < first+int64(count); i++ {
		img, err := frames.GetFrame(ctx, i)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		out := framePath(c.String("output"), i, count)
		if err := writePNG(fs, out, img); err != nil {
			return err
		}
		log.Info(l10n.F("Frame %d saved to %s", i, out))
	}

	hits, misses := cache.Stats()
	log.Debug("frame cache: %d frames, %d hits, %d misses", cache.Len(), hits, misses)
	return nil
}

func writePNG(fs ports.FileSystem, path string, img *media.Image) error {
	out, err := fs.CreateStream(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer out.Close()

	if err := gg.NewContextForImage(pixconv.ToRGBA(img)).EncodePNG(out); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func runAudio(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%s", l10n.T("FILE argument is required"))
	}
	path := c.Args().First()

	log, err := newLogger(c)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c.Context, log)
	defer cancel()

	fs := osfilesystem.New()
	src, stream, err := openSource(fs, path, importer.Options{Logger: log})
	if err != nil {
		return err
	}
	defer stream.Close()

	audio, err := src.Audio()
	if err != nil {
		return err
	}

	start := c.Int64("start")
	remaining := c.Int64("count")
	if remaining < 0 {
		total, err := audio.Samples()
		if err != nil {
			return err
		}
		remaining = total - start
	}

	out, err := fs.CreateStream(c.String("output"))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	channels := audio.Channels()
	buf := make([][]float32, channels)
	for ch := range buf {
		buf[ch] = make([]float32, audioChunk)
	}
	interleaved := make([]float32, audioChunk*channels)

	var written int64
	for remaining > 0 {
		n := audioChunk
		if int64(n) > remaining {
			n = int(remaining)
		}
		got, err := audio.ReadSamples(ctx, start+written, n, buf)
		if err != nil {
			return err
		}
		if got == 0 {
			break
		}
		for i := 0; i < got; i++ {
			for ch := 0; ch < channels; ch++ {
				interleaved[i*channels+ch] = buf[ch][i]
			}
		}
		if err := binary.Write(w, binary.LittleEndian, interleaved[:got*channels]); err != nil {
			return fmt.Errorf("write samples: %w", err)
		}
		written += int64(got)
		remaining -= int64(got)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}

	log.Info(l10n.F("%d samples of %d channels saved to %s", written, channels, c.String("output")))
	return nil
}
