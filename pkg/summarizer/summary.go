package summarizer

import (
	"time"

	"github.com/user/webmio/pkg/importer"
	"github.com/user/webmio/pkg/orchestrator"
)

// Summary describes one WebM file, either just written or opened for import.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	Title       string

	File  FileInfo
	Video *VideoInfo
	Audio *AudioInfo
}

// FileInfo contains container level information.
type FileInfo struct {
	Path       string
	Size       int64
	DocType    string
	WritingApp string
	DurationMs int64
	Clusters   int
	CuePoints  int
	CueTrack   string
	Passes     int
}

// VideoInfo contains the video track details.
type VideoInfo struct {
	Codec       string
	Width       int
	Height      int
	FrameRate   string
	Frames      int64
	RateControl string
}

// AudioInfo contains the audio track details.
type AudioInfo struct {
	Codec      string
	SampleRate int
	Channels   int
	Samples    int64
	Packets    int
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithTitle sets the heading.
func (b *Builder) WithTitle(title string) *Builder {
	b.summary.Title = title
	return b
}

// WithFile sets container information.
func (b *Builder) WithFile(file FileInfo) *Builder {
	b.summary.File = file
	return b
}

// WithVideo sets video track information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = &video
	return b
}

// WithAudio sets audio track information.
func (b *Builder) WithAudio(audio AudioInfo) *Builder {
	b.summary.Audio = &audio
	return b
}

// WithRunResult fills the summary from a finished export.
func (b *Builder) WithRunResult(r orchestrator.RunResult) *Builder {
	b.summary.File = FileInfo{
		Path:       r.OutputPath,
		Size:       r.FileSize,
		DocType:    "webm",
		DurationMs: r.DurationMs,
		Clusters:   r.Clusters,
		CueTrack:   r.CueTrack,
		Passes:     r.Passes,
	}
	if r.VideoCodec != "" {
		b.WithVideo(VideoInfo{
			Codec:       r.VideoCodec,
			Width:       r.Width,
			Height:      r.Height,
			FrameRate:   r.FrameRate,
			Frames:      int64(r.VideoFrames),
			RateControl: r.RateControl,
		})
	}
	if r.AudioCodec != "" {
		b.WithAudio(AudioInfo{
			Codec:      r.AudioCodec,
			SampleRate: r.SampleRate,
			Channels:   r.Channels,
			Samples:    r.AudioSamples,
			Packets:    r.AudioPackets,
		})
	}
	return b
}

// WithSource fills the summary from an opened file.
func (b *Builder) WithSource(path string, size int64, src *importer.Source) *Builder {
	f := src.File()
	info := src.Info()
	b.summary.File = FileInfo{
		Path:       path,
		Size:       size,
		DocType:    f.DocType,
		WritingApp: f.WritingApp,
		DurationMs: info.Duration / 1_000_000,
		Clusters:   len(f.Clusters),
		CuePoints:  len(f.Cues),
	}
	if info.HasVideo {
		b.WithVideo(VideoInfo{
			Codec:     info.VideoCodec,
			Width:     info.Width,
			Height:    info.Height,
			FrameRate: info.FrameRate().String(),
			Frames:    info.FrameCount,
		})
	}
	if info.HasAudio {
		b.WithAudio(AudioInfo{
			Codec:      info.AudioCodec,
			SampleRate: info.SampleRate,
			Channels:   info.Channels,
			Samples:    info.SampleCount,
		})
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
