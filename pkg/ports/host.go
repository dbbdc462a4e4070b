package ports

import (
	"context"

	"github.com/user/webmio/pkg/media"
)

// FrameSource renders frames of the host timeline.
type FrameSource interface {
	// RenderVideoFrame renders the frame starting at tick.
	RenderVideoFrame(ctx context.Context, tick int64) (media.RawFrame, error)
}

// AudioSource supplies the host's audio in planar float32.
type AudioSource interface {
	// MaxBlip is the largest number of samples one call may request.
	MaxBlip() int

	// GetAudioSamples returns up to count samples per channel.
	GetAudioSamples(ctx context.Context, count int) ([][]float32, error)
}

// ProgressStatus is the host's answer to a progress report.
type ProgressStatus int

const (
	ProgressContinue ProgressStatus = iota
	ProgressSuspend
	ProgressCancel
)

// ProgressReporter reports export progress and relays suspend and cancel.
type ProgressReporter interface {
	// ReportProgress reports the completed fraction (0..1).
	ReportProgress(fraction float64) ProgressStatus

	// WaitForResume blocks until the host resumes a suspended export.
	WaitForResume(ctx context.Context) error
}

// FrameKey identifies a decoded frame in the host cache.
type FrameKey struct {
	SourceID string
	Index    int64
}

// FrameCache is the host-owned decoded frame cache. The host evicts.
type FrameCache interface {
	Get(key FrameKey) (*media.Image, bool)
	Put(key FrameKey, img *media.Image)
}
