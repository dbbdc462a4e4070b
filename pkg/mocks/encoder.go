package mocks

import (
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder.
// Without hooks it emits one packet per frame with no lookahead, and a
// statistics packet per frame on the first pass.
type VideoEncoder struct {
	BeginFunc  func(cfg ports.VideoEncoderConfig) error
	EncodeFunc func(img *media.Image, pts, duration int64) ([]media.Packet, error)
	EndFunc    func() error

	// Recorded calls for verification
	BeginCalls  []ports.VideoEncoderConfig
	EncodeCalls []EncodeCall
	EndCalled   int

	pass ports.EncodePass
}

// EncodeCall records a call to Encode.
type EncodeCall struct {
	PTS      int64
	Duration int64
	Flush    bool
}

func (m *VideoEncoder) Begin(cfg ports.VideoEncoderConfig) error {
	m.BeginCalls = append(m.BeginCalls, cfg)
	m.pass = cfg.Pass
	if m.BeginFunc != nil {
		return m.BeginFunc(cfg)
	}
	return nil
}

func (m *VideoEncoder) Encode(img *media.Image, pts, duration int64) ([]media.Packet, error) {
	m.EncodeCalls = append(m.EncodeCalls, EncodeCall{PTS: pts, Duration: duration, Flush: img == nil})
	if m.EncodeFunc != nil {
		return m.EncodeFunc(img, pts, duration)
	}
	if img == nil {
		return nil, nil
	}
	if m.pass == ports.PassFirst {
		return []media.Packet{{Kind: media.PacketStats, Data: []byte{byte(pts)}}}, nil
	}
	return []media.Packet{{Kind: media.PacketFrame, Data: []byte{byte(pts)}, PTS: pts, Duration: duration, Keyframe: pts == 0}}, nil
}

func (m *VideoEncoder) End() error {
	m.EndCalled++
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	return nil
}

// Frames returns the number of non-flush Encode calls.
func (m *VideoEncoder) Frames() int {
	n := 0
	for _, c := range m.EncodeCalls {
		if !c.Flush {
			n++
		}
	}
	return n
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)

// AudioEncoder is a mock implementation of ports.AudioEncoder.
// Without hooks each Write queues one packet covering the written samples.
type AudioEncoder struct {
	BeginFunc  func(cfg ports.AudioEncoderConfig) (ports.AudioHeaders, error)
	WriteFunc  func(samples [][]float32) error
	NextFunc   func() (media.AudioPacket, bool, error)
	FinishFunc func() error
	EndFunc    func() error

	// Size is returned by FrameSize.
	Size int

	// Recorded calls for verification
	BeginCalls  []ports.AudioEncoderConfig
	WriteCalls  []int // samples per channel
	FinishCalls int
	EndCalled   int

	granule int64
	queue   []media.AudioPacket
}

func (m *AudioEncoder) Begin(cfg ports.AudioEncoderConfig) (ports.AudioHeaders, error) {
	m.BeginCalls = append(m.BeginCalls, cfg)
	m.granule = 0
	m.queue = nil
	if m.BeginFunc != nil {
		return m.BeginFunc(cfg)
	}
	return ports.AudioHeaders{[]byte("ident"), []byte("comment"), []byte("setup")}, nil
}

func (m *AudioEncoder) FrameSize() int {
	if m.Size > 0 {
		return m.Size
	}
	return 64
}

func (m *AudioEncoder) Write(samples [][]float32) error {
	n := 0
	if len(samples) > 0 {
		n = len(samples[0])
	}
	m.WriteCalls = append(m.WriteCalls, n)
	if m.WriteFunc != nil {
		return m.WriteFunc(samples)
	}
	if n > 0 {
		m.granule += int64(n)
		m.queue = append(m.queue, media.AudioPacket{Data: []byte{byte(n)}, Granule: m.granule, Samples: n})
	}
	return nil
}

func (m *AudioEncoder) Next() (media.AudioPacket, bool, error) {
	if m.NextFunc != nil {
		return m.NextFunc()
	}
	if len(m.queue) == 0 {
		return media.AudioPacket{}, false, nil
	}
	pkt := m.queue[0]
	m.queue = m.queue[1:]
	return pkt, true, nil
}

func (m *AudioEncoder) Finish() error {
	m.FinishCalls++
	if m.FinishFunc != nil {
		return m.FinishFunc()
	}
	return nil
}

func (m *AudioEncoder) End() error {
	m.EndCalled++
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	return nil
}

var _ ports.AudioEncoder = (*AudioEncoder)(nil)
