package ports

import (
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/timebase"
)

// RateControl selects how the video encoder spends bits.
type RateControl int

const (
	// RateCQ holds a fixed quantizer.
	RateCQ RateControl = iota
	// RateCBR targets a constant bitrate in one pass.
	RateCBR
	// RateVBR targets an average bitrate in two passes.
	RateVBR
)

// String returns the config name of the mode.
func (r RateControl) String() string {
	switch r {
	case RateCQ:
		return "cq"
	case RateCBR:
		return "cbr"
	case RateVBR:
		return "vbr"
	default:
		return "unknown"
	}
}

// ParseRateControl parses a mode name. Unknown names yield RateCQ.
func ParseRateControl(s string) RateControl {
	switch s {
	case "cbr":
		return RateCBR
	case "vbr":
		return RateVBR
	default:
		return RateCQ
	}
}

// Deadline bounds the time the encoder may spend on one frame.
type Deadline int

const (
	// DeadlineGood balances speed and quality.
	DeadlineGood Deadline = iota
	// DeadlineRealtime returns as soon as possible.
	DeadlineRealtime
	// DeadlineBest takes as long as the codec needs.
	DeadlineBest
)

// String returns the config name of the deadline.
func (d Deadline) String() string {
	switch d {
	case DeadlineGood:
		return "good"
	case DeadlineRealtime:
		return "realtime"
	case DeadlineBest:
		return "best"
	default:
		return "unknown"
	}
}

// EncodePass tells the encoder which pass it is running.
type EncodePass int

const (
	// PassOnly is a single real pass.
	PassOnly EncodePass = iota
	// PassFirst gathers rate-control statistics only.
	PassFirst
	// PassLast consumes statistics and produces real packets.
	PassLast
)

// VideoEncoderConfig configures a video encoder for one pass.
type VideoEncoderConfig struct {
	Codec  string // media.CodecVP8, media.CodecVP9 or media.CodecUncompressed
	Width  int
	Height int

	// Timebase is the duration of one pts unit in seconds.
	Timebase timebase.Rational

	// Threads is the hardware concurrency handed to the codec.
	Threads int

	RateControl  RateControl
	BitrateKbps  int
	MinQuantizer int
	MaxQuantizer int
	Quantizer    int // RateCQ only

	KeyframeMaxDist int
	Deadline        Deadline

	// Controls are codec-specific tuning values by name, such as
	// "cpu-used" or "sharpness". Encoders reject names they do not know.
	Controls map[string]int

	Pass  EncodePass
	Stats []byte // PassLast only
}

// VideoEncoder abstracts a block-based video encoder.
type VideoEncoder interface {
	// Begin initializes the encoder for one pass.
	Begin(cfg VideoEncoderConfig) error

	// Encode submits a frame and returns the packets that became available.
	// A nil image flushes buffered frames.
	Encode(img *media.Image, pts, duration int64) ([]media.Packet, error)

	// End releases the encoder.
	End() error
}

// AudioEncoderConfig configures an audio encoder.
type AudioEncoderConfig struct {
	Codec       string // media.CodecVorbis or media.CodecPCMFloat
	SampleRate  int
	Channels    int
	Quality     float32 // -0.1..1.0, used when BitrateKbps is 0
	BitrateKbps int
}

// AudioHeaders are the identification, comment and setup packets.
type AudioHeaders [3][]byte

// AudioEncoder abstracts a transform audio encoder fed in arbitrary chunks.
type AudioEncoder interface {
	// Begin initializes the encoder and returns its three setup packets.
	Begin(cfg AudioEncoderConfig) (AudioHeaders, error)

	// FrameSize is the smallest chunk that can complete a block.
	FrameSize() int

	// Write submits planar samples for analysis. Packets are collected
	// with Next.
	Write(samples [][]float32) error

	// Next returns the next completed packet. It reports false when the
	// codec needs more input, or after Finish when it is drained. Blocks
	// not yet collected stay inside the codec.
	Next() (media.AudioPacket, bool, error)

	// Finish signals end of input. The remaining packets are collected
	// with Next.
	Finish() error

	// End releases the encoder.
	End() error
}
