package mocks

import (
	"sync"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// VideoDecoder wraps a real decoder and counts calls. With no Inner it
// returns a blank picture of the configured size per frame.
type VideoDecoder struct {
	mu sync.Mutex

	Inner ports.VideoDecoder

	BeginFunc  func(cfg ports.VideoDecoderConfig) error
	DecodeFunc func(data []byte) ([]*media.Image, error)

	// Recorded calls for verification
	BeginCalls  []ports.VideoDecoderConfig
	DecodeCalls int
	EndCalled   int
}

func (m *VideoDecoder) Begin(cfg ports.VideoDecoderConfig) error {
	m.mu.Lock()
	m.BeginCalls = append(m.BeginCalls, cfg)
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(cfg)
	}
	if m.Inner != nil {
		return m.Inner.Begin(cfg)
	}
	return nil
}

func (m *VideoDecoder) Decode(data []byte) ([]*media.Image, error) {
	m.mu.Lock()
	m.DecodeCalls++
	var cfg ports.VideoDecoderConfig
	if n := len(m.BeginCalls); n > 0 {
		cfg = m.BeginCalls[n-1]
	}
	m.mu.Unlock()
	if m.DecodeFunc != nil {
		return m.DecodeFunc(data)
	}
	if m.Inner != nil {
		return m.Inner.Decode(data)
	}
	return []*media.Image{media.NewImage(cfg.Width, cfg.Height)}, nil
}

func (m *VideoDecoder) End() {
	m.mu.Lock()
	m.EndCalled++
	m.mu.Unlock()
	if m.Inner != nil {
		m.Inner.End()
	}
}

// Decodes returns the number of Decode calls so far.
func (m *VideoDecoder) Decodes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DecodeCalls
}

// Ends returns the number of End calls so far.
func (m *VideoDecoder) Ends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.EndCalled
}

var _ ports.VideoDecoder = (*VideoDecoder)(nil)
