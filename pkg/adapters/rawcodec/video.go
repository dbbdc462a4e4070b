package rawcodec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

const (
	// DefaultLookahead is the number of frames held before output starts.
	DefaultLookahead = 2

	// DefaultKeyframeDist is used when the config leaves KeyframeMaxDist at zero.
	DefaultKeyframeDist = 30

	statsRecordSize = 16
)

type pendingFrame struct {
	img      *media.Image
	pts      int64
	duration int64
}

// VideoEncoder implements ports.VideoEncoder for V_UNCOMPRESSED.
type VideoEncoder struct {
	mu sync.Mutex

	lookahead int
	cfg       ports.VideoEncoderConfig
	begun     bool

	queue      []pendingFrame
	frameCount int64
	stats      []byte
}

// NewVideoEncoder creates an encoder holding lookahead frames (DefaultLookahead when negative).
func NewVideoEncoder(lookahead int) *VideoEncoder {
	if lookahead < 0 {
		lookahead = DefaultLookahead
	}
	return &VideoEncoder{lookahead: lookahead}
}

// Begin initializes the encoder for one pass.
func (e *VideoEncoder) Begin(cfg ports.VideoEncoderConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cfg.Codec != media.CodecUncompressed {
		return fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, cfg.Width, cfg.Height)
	}
	if cfg.Pass == ports.PassLast {
		if len(cfg.Stats) == 0 || len(cfg.Stats)%statsRecordSize != 0 {
			return fmt.Errorf("%w: %d bytes", ErrBadStats, len(cfg.Stats))
		}
	}
	if cfg.KeyframeMaxDist <= 0 {
		cfg.KeyframeMaxDist = DefaultKeyframeDist
	}

	e.cfg = cfg
	e.begun = true
	e.queue = nil
	e.frameCount = 0
	e.stats = nil
	return nil
}

// Encode queues a frame and returns the packets pushed out of the lookahead.
// A nil image drains the queue.
func (e *VideoEncoder) Encode(img *media.Image, pts, duration int64) ([]media.Packet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.begun {
		return nil, ErrNotInitialized
	}

	if img == nil {
		var out []media.Packet
		for len(e.queue) > 0 {
			out = append(out, e.emit()...)
		}
		return out, nil
	}

	if img.Width != e.cfg.Width || img.Height != e.cfg.Height {
		return nil, fmt.Errorf("%w: got %dx%d, configured %dx%d", ErrBadSize, img.Width, img.Height, e.cfg.Width, e.cfg.Height)
	}

	e.queue = append(e.queue, pendingFrame{img: img.Clone(), pts: pts, duration: duration})

	var out []media.Packet
	for len(e.queue) > e.lookahead {
		out = append(out, e.emit()...)
	}
	return out, nil
}

func (e *VideoEncoder) emit() []media.Packet {
	f := e.queue[0]
	e.queue = e.queue[1:]

	keyframe := e.frameCount%int64(e.cfg.KeyframeMaxDist) == 0
	e.frameCount++

	payload := PackI420(f.img)

	if e.cfg.Pass == ports.PassFirst {
		rec := make([]byte, statsRecordSize)
		binary.LittleEndian.PutUint64(rec[0:], uint64(f.pts))
		binary.LittleEndian.PutUint64(rec[8:], uint64(len(payload)))
		e.stats = append(e.stats, rec...)
		return []media.Packet{{Kind: media.PacketStats, Data: rec, PTS: f.pts, Duration: f.duration}}
	}

	return []media.Packet{{
		Kind:     media.PacketFrame,
		Data:     payload,
		PTS:      f.pts,
		Duration: f.duration,
		Keyframe: keyframe,
	}}
}

// End releases the encoder.
func (e *VideoEncoder) End() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.begun = false
	e.queue = nil
	return nil
}

// PackI420 writes the picture as tightly packed Y, U and V planes.
func PackI420(img *media.Image) []byte {
	cw, ch := media.ChromaSize(img.Width, img.Height)
	out := make([]byte, 0, img.PayloadSize())
	for y := 0; y < img.Height; y++ {
		out = append(out, img.Y[y*img.YStride:y*img.YStride+img.Width]...)
	}
	for _, plane := range [][]byte{img.U, img.V} {
		for y := 0; y < ch; y++ {
			out = append(out, plane[y*img.CStride:y*img.CStride+cw]...)
		}
	}
	return out
}

// VideoDecoder implements ports.VideoDecoder for V_UNCOMPRESSED.
type VideoDecoder struct {
	width  int
	height int
	begun  bool
}

// NewVideoDecoder creates a decoder.
func NewVideoDecoder() *VideoDecoder {
	return &VideoDecoder{}
}

// Begin initializes the decoder.
func (d *VideoDecoder) Begin(cfg ports.VideoDecoderConfig) error {
	if cfg.Codec != media.CodecUncompressed {
		return fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, cfg.Width, cfg.Height)
	}
	d.width = cfg.Width
	d.height = cfg.Height
	d.begun = true
	return nil
}

// Decode unpacks one frame.
func (d *VideoDecoder) Decode(data []byte) ([]*media.Image, error) {
	if !d.begun {
		return nil, ErrNotInitialized
	}
	img := media.NewImage(d.width, d.height)
	if len(data) != img.PayloadSize() {
		return nil, fmt.Errorf("%w: payload %d bytes, expected %d", ErrBadSize, len(data), img.PayloadSize())
	}
	n := copy(img.Y, data)
	n += copy(img.U, data[n:])
	copy(img.V, data[n:])
	return []*media.Image{img}, nil
}

// End releases decoder resources.
func (d *VideoDecoder) End() {
	d.begun = false
}

var (
	_ ports.VideoEncoder = (*VideoEncoder)(nil)
	_ ports.VideoDecoder = (*VideoDecoder)(nil)
)
