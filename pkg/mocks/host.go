package mocks

import (
	"context"
	"sync"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource.
// Without a hook it renders a mid-gray planar frame of Width x Height.
type FrameSource struct {
	Width  int
	Height int

	RenderFunc func(ctx context.Context, tick int64) (media.RawFrame, error)

	// Recorded calls for verification
	Ticks []int64
}

func (m *FrameSource) RenderVideoFrame(ctx context.Context, tick int64) (media.RawFrame, error) {
	m.Ticks = append(m.Ticks, tick)
	if m.RenderFunc != nil {
		return m.RenderFunc(ctx, tick)
	}
	img := media.NewImage(m.Width, m.Height)
	for i := range img.Y {
		img.Y[i] = 128
	}
	for i := range img.U {
		img.U[i] = 128
		img.V[i] = 128
	}
	cw, _ := media.ChromaSize(m.Width, m.Height)
	return media.RawFrame{
		Format:  media.FormatI420,
		Width:   m.Width,
		Height:  m.Height,
		Planes:  [][]byte{img.Y, img.U, img.V},
		Strides: []int{m.Width, cw, cw},
	}, nil
}

var _ ports.FrameSource = (*FrameSource)(nil)

// AudioSource is a mock implementation of ports.AudioSource.
// It serves silence, never more than Blip samples per call.
type AudioSource struct {
	Channels int
	Blip     int

	GetFunc func(ctx context.Context, count int) ([][]float32, error)

	// Recorded calls for verification
	Requests []int
}

func (m *AudioSource) MaxBlip() int {
	if m.Blip > 0 {
		return m.Blip
	}
	return 1024
}

func (m *AudioSource) GetAudioSamples(ctx context.Context, count int) ([][]float32, error) {
	m.Requests = append(m.Requests, count)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, count)
	}
	channels := m.Channels
	if channels <= 0 {
		channels = 1
	}
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, count)
	}
	return out, nil
}

// Requested returns the total number of samples requested.
func (m *AudioSource) Requested() int {
	n := 0
	for _, r := range m.Requests {
		n += r
	}
	return n
}

var _ ports.AudioSource = (*AudioSource)(nil)

// ProgressReporter is a mock implementation of ports.ProgressReporter.
type ProgressReporter struct {
	mu sync.Mutex

	ReportFunc func(fraction float64) ports.ProgressStatus
	WaitFunc   func(ctx context.Context) error

	// Recorded calls for verification
	Fractions []float64
	Waits     int
}

func (m *ProgressReporter) ReportProgress(fraction float64) ports.ProgressStatus {
	m.mu.Lock()
	m.Fractions = append(m.Fractions, fraction)
	m.mu.Unlock()
	if m.ReportFunc != nil {
		return m.ReportFunc(fraction)
	}
	return ports.ProgressContinue
}

func (m *ProgressReporter) WaitForResume(ctx context.Context) error {
	m.mu.Lock()
	m.Waits++
	m.mu.Unlock()
	if m.WaitFunc != nil {
		return m.WaitFunc(ctx)
	}
	return nil
}

var _ ports.ProgressReporter = (*ProgressReporter)(nil)

// FrameCache is a mock implementation of ports.FrameCache backed by a map.
type FrameCache struct {
	mu     sync.Mutex
	frames map[ports.FrameKey]*media.Image

	// Recorded calls for verification
	Gets int
	Puts int
}

// NewFrameCache creates an empty mock cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{frames: make(map[ports.FrameKey]*media.Image)}
}

func (m *FrameCache) Get(key ports.FrameKey) (*media.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	img, ok := m.frames[key]
	return img, ok
}

func (m *FrameCache) Put(key ports.FrameKey, img *media.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	m.frames[key] = img
}

// Len returns the number of cached frames.
func (m *FrameCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

var _ ports.FrameCache = (*FrameCache)(nil)
