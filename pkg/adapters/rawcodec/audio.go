package rawcodec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// DefaultBlockSize is the number of samples per channel in one PCM block.
const DefaultBlockSize = 480

const (
	identMagic = "PCMF"
	identSize  = 11
	vendor     = "webmio pcm"
)

// AudioEncoder implements ports.AudioEncoder for A_PCM/FLOAT/IEEE.
// Blocks carry interleaved little-endian float32 samples.
type AudioEncoder struct {
	blockSize int
	channels  int
	begun     bool
	finished  bool

	pending [][]float32
	granule int64
}

// NewAudioEncoder creates an encoder emitting blocks of blockSize samples
// (DefaultBlockSize when not positive).
func NewAudioEncoder(blockSize int) *AudioEncoder {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &AudioEncoder{blockSize: blockSize}
}

// Begin initializes the encoder and returns its setup packets.
func (e *AudioEncoder) Begin(cfg ports.AudioEncoderConfig) (ports.AudioHeaders, error) {
	if cfg.Codec != media.CodecPCMFloat {
		return ports.AudioHeaders{}, fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.Channels > 255 {
		return ports.AudioHeaders{}, fmt.Errorf("%w: rate %d channels %d", ErrBadHeaders, cfg.SampleRate, cfg.Channels)
	}

	e.channels = cfg.Channels
	e.pending = make([][]float32, cfg.Channels)
	e.granule = 0
	e.begun = true
	e.finished = false

	ident := make([]byte, identSize)
	copy(ident, identMagic)
	binary.LittleEndian.PutUint32(ident[4:], uint32(cfg.SampleRate))
	ident[8] = byte(cfg.Channels)
	binary.LittleEndian.PutUint16(ident[9:], uint16(e.blockSize))

	return ports.AudioHeaders{ident, []byte(vendor), nil}, nil
}

// FrameSize returns the block size.
func (e *AudioEncoder) FrameSize() int {
	return e.blockSize
}

// Write buffers planar samples.
func (e *AudioEncoder) Write(samples [][]float32) error {
	if !e.begun || e.finished {
		return ErrNotInitialized
	}
	if len(samples) != e.channels {
		return fmt.Errorf("%w: %d channels, expected %d", ErrBadSize, len(samples), e.channels)
	}
	n := len(samples[0])
	for ch, s := range samples {
		if len(s) != n {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d", ErrBadSize, ch, len(s), n)
		}
	}
	for ch, s := range samples {
		e.pending[ch] = append(e.pending[ch], s...)
	}
	return nil
}

// Next cuts the next full block, or after Finish the final partial one.
func (e *AudioEncoder) Next() (media.AudioPacket, bool, error) {
	if !e.begun {
		return media.AudioPacket{}, false, ErrNotInitialized
	}
	n := len(e.pending[0])
	switch {
	case n >= e.blockSize:
		return e.block(e.blockSize), true, nil
	case n > 0 && e.finished:
		return e.block(n), true, nil
	}
	return media.AudioPacket{}, false, nil
}

// Finish lets Next emit the final partial block.
func (e *AudioEncoder) Finish() error {
	if !e.begun {
		return ErrNotInitialized
	}
	e.finished = true
	return nil
}

func (e *AudioEncoder) block(n int) media.AudioPacket {
	data := make([]byte, n*e.channels*4)
	for i := 0; i < n; i++ {
		for ch := 0; ch < e.channels; ch++ {
			binary.LittleEndian.PutUint32(data[(i*e.channels+ch)*4:], math.Float32bits(e.pending[ch][i]))
		}
	}
	for ch := range e.pending {
		e.pending[ch] = e.pending[ch][n:]
	}
	e.granule += int64(n)
	return media.AudioPacket{Data: data, Granule: e.granule, Samples: n}
}

// End releases the encoder.
func (e *AudioEncoder) End() error {
	e.begun = false
	e.pending = nil
	return nil
}

// AudioDecoder implements ports.AudioDecoder for A_PCM/FLOAT/IEEE.
type AudioDecoder struct {
	channels int
	begun    bool
}

// NewAudioDecoder creates a decoder.
func NewAudioDecoder() *AudioDecoder {
	return &AudioDecoder{}
}

// Begin parses the identification packet.
func (d *AudioDecoder) Begin(cfg ports.AudioDecoderConfig) error {
	if cfg.Codec != media.CodecPCMFloat {
		return fmt.Errorf("%w: %s", ErrCodecMismatch, cfg.Codec)
	}
	ident := cfg.Headers[0]
	if len(ident) == 0 && cfg.Channels > 0 {
		// Tracks written elsewhere carry no identification packet.
		d.channels = cfg.Channels
		d.begun = true
		return nil
	}
	if len(ident) != identSize || string(ident[:4]) != identMagic {
		return fmt.Errorf("%w: identification packet of %d bytes", ErrBadHeaders, len(ident))
	}
	channels := int(ident[8])
	if channels == 0 {
		return fmt.Errorf("%w: zero channels", ErrBadHeaders)
	}
	if cfg.Channels != 0 && cfg.Channels != channels {
		return fmt.Errorf("%w: track has %d channels, stream has %d", ErrBadHeaders, cfg.Channels, channels)
	}
	d.channels = channels
	d.begun = true
	return nil
}

// Decode converts one block to planar samples.
func (d *AudioDecoder) Decode(data []byte) ([][]float32, error) {
	if !d.begun {
		return nil, ErrNotInitialized
	}
	frame := d.channels * 4
	if len(data)%frame != 0 {
		return nil, fmt.Errorf("%w: block of %d bytes for %d channels", ErrBadSize, len(data), d.channels)
	}
	n := len(data) / frame
	out := make([][]float32, d.channels)
	for ch := range out {
		out[ch] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		for ch := 0; ch < d.channels; ch++ {
			out[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(data[(i*d.channels+ch)*4:]))
		}
	}
	return out, nil
}

// PacketSamples returns the number of samples in a block without decoding it.
func (d *AudioDecoder) PacketSamples(data []byte) (int, error) {
	if !d.begun {
		return 0, ErrNotInitialized
	}
	frame := d.channels * 4
	if len(data)%frame != 0 {
		return 0, fmt.Errorf("%w: block of %d bytes for %d channels", ErrBadSize, len(data), d.channels)
	}
	return len(data) / frame, nil
}

// Reset is a no-op; blocks are independent.
func (d *AudioDecoder) Reset() error {
	return nil
}

// End releases decoder resources.
func (d *AudioDecoder) End() {
	d.begun = false
}

var (
	_ ports.AudioEncoder = (*AudioEncoder)(nil)
	_ ports.AudioDecoder = (*AudioDecoder)(nil)
)
