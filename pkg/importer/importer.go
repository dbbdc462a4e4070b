// Package importer opens a WebM file and answers random-access frame and
// sample requests against it.
package importer

import (
	"errors"
	"fmt"
	"io"

	"github.com/user/webmio/pkg/adapters/codecdetect"
	"github.com/user/webmio/pkg/adapters/logger"
	"github.com/user/webmio/pkg/adapters/smartdecoder"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/webm"
)

var (
	// ErrBadFile is wrapped by every format error so callers can tell a
	// malformed file from a failing read.
	ErrBadFile = errors.New("importer: bad file")

	// ErrBadHeader is returned for a stream that is not EBML WebM or Matroska.
	ErrBadHeader = errors.New("importer: bad header")

	// ErrNoImportableStreams is returned when no track has an importable codec.
	ErrNoImportableStreams = errors.New("importer: no importable streams")

	// ErrUnsupportedCodec is returned when no decoder is built in for a track's codec.
	ErrUnsupportedCodec = errors.New("importer: unsupported codec")

	// ErrFrameNotFound is returned when decoding past the seek point never
	// reaches the requested frame.
	ErrFrameNotFound = errors.New("importer: frame not found")

	// ErrNoTrack is returned when frames or samples are requested from a file without that track.
	ErrNoTrack = errors.New("importer: track not present")
)

func badFile(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w: %s", ErrBadFile, kind, fmt.Sprintf(format, args...))
}

// Info describes an opened source.
type Info struct {
	HasVideo bool
	HasAudio bool

	VideoCodec string
	Width      int
	Height     int
	// VidScale/VidSampleSize is the frame rate.
	VidScale      int64
	VidSampleSize int64
	FrameCount    int64
	// KeyframesOnly is set when only key frames can be decoded in this
	// build. GetFrame fails for the other frames.
	KeyframesOnly bool

	AudioCodec  string
	SampleRate  int
	Channels    int
	SampleCount int64

	// Duration is the segment duration in nanoseconds.
	Duration int64
}

// FrameRate returns the video frame rate.
func (i Info) FrameRate() timebase.Rational {
	return timebase.Rational{Num: i.VidScale, Den: i.VidSampleSize}
}

// Options configures an import.
type Options struct {
	// SourceID keys this source's frames in the host cache.
	SourceID string
	// Cache is the host frame cache. Frames are not kept when nil.
	Cache ports.FrameCache
	// Threads is the hardware concurrency handed to the video decoder.
	Threads int
	Logger  ports.Logger

	// NewVideoDecoder and NewAudioDecoder default to the best built-in backend.
	NewVideoDecoder func(codecID string) (ports.VideoDecoder, error)
	NewAudioDecoder func(codecID string) (ports.AudioDecoder, error)
}

func (o *Options) defaults() {
	if o.NewVideoDecoder == nil {
		o.NewVideoDecoder = func(codecID string) (ports.VideoDecoder, error) {
			dec, _, err := smartdecoder.NewVideo(codecID)
			return dec, err
		}
	}
	if o.NewAudioDecoder == nil {
		o.NewAudioDecoder = func(codecID string) (ports.AudioDecoder, error) {
			dec, _, err := smartdecoder.NewAudio(codecID)
			return dec, err
		}
	}
	if o.Cache == nil {
		o.Cache = noCache{}
	}
	if o.Threads <= 0 {
		o.Threads = 1
	}
	if o.Logger == nil {
		o.Logger = logger.NewNoop()
	}
	o.Logger = o.Logger.WithComponent("importer")
}

type noCache struct{}

func (noCache) Get(ports.FrameKey) (*media.Image, bool) { return nil, false }
func (noCache) Put(ports.FrameKey, *media.Image)        {}

// Source is an opened WebM file.
type Source struct {
	file   *webm.File
	info   Info
	frames *DecodeCache
	audio  *AudioRandomAccess
}

// Open parses r and selects the first importable video and audio tracks.
func Open(r io.ReadSeeker, opts Options) (*Source, error) {
	opts.defaults()

	detected, err := codecdetect.Detect(r)
	switch {
	case detected.Container == codecdetect.ContainerMP4:
		return nil, badFile(ErrBadHeader, "mp4 container (%s video) is not supported, convert it to WebM", detected.VideoCodec)
	case err != nil:
		return nil, badFile(ErrBadHeader, "%v", err)
	case detected.Container != codecdetect.ContainerWebM && detected.Container != codecdetect.ContainerMatroska:
		return nil, badFile(ErrBadHeader, "no EBML header")
	}

	f, err := webm.Parse(r)
	if err != nil {
		if errors.Is(err, webm.ErrBadHeader) {
			return nil, badFile(ErrBadHeader, "%v", err)
		}
		return nil, fmt.Errorf("parse container: %w", err)
	}
	opts.Logger.Debug("Parsed %s: %d tracks, %d clusters, %d cue points", f.DocType, len(f.Tracks), len(f.Clusters), len(f.Cues))
	return newSource(f, opts)
}

func newSource(f *webm.File, opts Options) (*Source, error) {
	vt, hasVideo := f.FirstTrack(media.TrackVideo, media.IsVideoCodec)
	at, hasAudio := f.FirstTrack(media.TrackAudio, media.IsAudioCodec)
	if !hasVideo && !hasAudio {
		return nil, badFile(ErrNoImportableStreams, "%d tracks", len(f.Tracks))
	}
	if hasVideo && !smartdecoder.CanDecodeVideo(vt.CodecID) {
		return nil, badFile(ErrUnsupportedCodec, "video codec %s", vt.CodecID)
	}
	if hasAudio && !smartdecoder.CanDecodeAudio(at.CodecID) {
		return nil, badFile(ErrUnsupportedCodec, "audio codec %s", at.CodecID)
	}

	durationNs := int64(f.Duration * float64(f.TimecodeScale))
	s := &Source{
		file: f,
		info: Info{Duration: durationNs},
	}

	if hasVideo {
		rate := videoFrameRate(f, vt)
		if rate.Num <= 0 {
			return nil, badFile(ErrNoImportableStreams, "cannot determine the frame rate of track %d", vt.Number)
		}
		s.info.HasVideo = true
		s.info.VideoCodec = vt.CodecID
		s.info.Width = vt.Width
		s.info.Height = vt.Height
		s.info.VidScale = rate.Num
		s.info.VidSampleSize = rate.Den
		s.info.FrameCount = int64(f.TrackBlockCount(vt.Number))
		s.info.KeyframesOnly = smartdecoder.KeyframesOnly(vt.CodecID)
		if s.info.KeyframesOnly {
			opts.Logger.Warn("%s decoder is key frame only in this build; inter frames cannot be read", vt.CodecID)
		}

		frames, err := newDecodeCache(f, vt, rate, opts)
		if err != nil {
			return nil, err
		}
		s.frames = frames
	}

	if hasAudio {
		if at.SampleRate <= 0 || at.Channels <= 0 {
			return nil, badFile(ErrNoImportableStreams, "audio track %d has no sample format", at.Number)
		}
		audio, err := newAudioRandomAccess(f, at, opts)
		if err != nil {
			return nil, err
		}
		s.info.HasAudio = true
		s.info.AudioCodec = at.CodecID
		s.info.SampleRate = at.SampleRate
		s.info.Channels = at.Channels
		s.info.SampleCount = int64(at.SampleRate) * durationNs / 1_000_000_000
		s.audio = audio
	}

	return s, nil
}

// videoFrameRate prefers DefaultDuration and otherwise guesses from block times.
func videoFrameRate(f *webm.File, t webm.Track) timebase.Rational {
	if t.DefaultDuration > 0 {
		return timebase.FrameRateFromDefaultDuration(t.DefaultDuration)
	}
	tcs := f.TrackTimecodes(t.Number)
	ns := make([]int64, len(tcs))
	for i, tc := range tcs {
		ns[i] = tc * f.TimecodeScale
	}
	return timebase.GuessFrameRate(ns)
}

// Info returns the source description.
func (s *Source) Info() Info {
	return s.info
}

// File returns the parsed container.
func (s *Source) File() *webm.File {
	return s.file
}

// Frames returns the frame cache, or ErrNoTrack for a file without video.
func (s *Source) Frames() (*DecodeCache, error) {
	if s.frames == nil {
		return nil, ErrNoTrack
	}
	return s.frames, nil
}

// Audio returns the audio reader, or ErrNoTrack for a file without audio.
func (s *Source) Audio() (*AudioRandomAccess, error) {
	if s.audio == nil {
		return nil, ErrNoTrack
	}
	return s.audio, nil
}
