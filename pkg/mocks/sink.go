package mocks

import (
	"image"
	"sync"

	"github.com/user/webmio/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	Stats      []byte
	Frames     map[int]image.Image
	ReportJSON []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled: enabled,
		Frames:  make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveStats(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stats = data
	return nil
}

func (m *DebugSink) SaveFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[index] = img
	return nil
}

func (m *DebugSink) SaveReportJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReportJSON = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)

// NullSink is a no-op implementation of ports.DebugSink.
type NullSink struct{}

func (m *NullSink) Enabled() bool                              { return false }
func (m *NullSink) SaveStats(data []byte) error                { return nil }
func (m *NullSink) SaveFrame(index int, img image.Image) error { return nil }
func (m *NullSink) SaveReportJSON(data []byte) error           { return nil }

var _ ports.DebugSink = (*NullSink)(nil)
