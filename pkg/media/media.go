// Package media defines the frame, sample and packet types shared by the
// export and import paths.
package media

import (
	"fmt"
)

// PixelFormat identifies the layout of a raw host frame.
type PixelFormat int

const (
	// FormatI420 is native planar 4:2:0, 8 bits per sample.
	FormatI420 PixelFormat = iota
	// FormatBGRA8 is packed 4 channel, 8 bits per channel.
	FormatBGRA8
	// FormatBGRA16 is packed 4 channel, 16 bits per channel (native endian, 0..32768).
	FormatBGRA16
)

// String returns a short name for the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatI420:
		return "i420"
	case FormatBGRA8:
		return "bgra8"
	case FormatBGRA16:
		return "bgra16"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParsePixelFormat parses a format name. Unknown names yield FormatBGRA8.
func ParsePixelFormat(s string) PixelFormat {
	switch s {
	case "i420":
		return FormatI420
	case "bgra16":
		return FormatBGRA16
	default:
		return FormatBGRA8
	}
}

// RawFrame is a frame as the host renders it.
type RawFrame struct {
	Format PixelFormat
	Width  int
	Height int

	// Planes holds one buffer for packed formats and three (Y, U, V) for I420.
	Planes [][]byte
	// Strides holds the row stride in bytes of each plane.
	Strides []int

	// BottomUp is set when the first row in memory is the bottom of the picture.
	BottomUp bool
}

// Image is a planar 4:2:0 8-bit picture, top-down.
type Image struct {
	Width  int
	Height int

	Y []byte
	U []byte
	V []byte

	YStride int
	CStride int
}

// NewImage allocates an Image with tight strides.
func NewImage(width, height int) *Image {
	cw, ch := ChromaSize(width, height)
	return &Image{
		Width:   width,
		Height:  height,
		Y:       make([]byte, width*height),
		U:       make([]byte, cw*ch),
		V:       make([]byte, cw*ch),
		YStride: width,
		CStride: cw,
	}
}

// ChromaSize returns the chroma plane dimensions for a luma size.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	out := &Image{
		Width:   img.Width,
		Height:  img.Height,
		Y:       append([]byte(nil), img.Y...),
		U:       append([]byte(nil), img.U...),
		V:       append([]byte(nil), img.V...),
		YStride: img.YStride,
		CStride: img.CStride,
	}
	return out
}

// PayloadSize is the size of a tightly packed I420 buffer for the image.
func (img *Image) PayloadSize() int {
	cw, ch := ChromaSize(img.Width, img.Height)
	return img.Width*img.Height + 2*cw*ch
}

// PacketKind distinguishes compressed frames from rate-control statistics.
type PacketKind int

const (
	PacketFrame PacketKind = iota
	PacketStats
)

// Packet is one unit of encoder output.
type Packet struct {
	Kind     PacketKind
	Data     []byte
	PTS      int64 // codec timestamp
	Duration int64 // codec timestamp units
	Keyframe bool
}

// AudioPacket is one compressed audio block.
type AudioPacket struct {
	Data []byte

	// Granule is the sample position just past the last sample of the packet.
	Granule int64
	// Samples is the number of samples the packet decodes to.
	Samples int
}

// StartSample returns the sample position of the first sample in the packet.
func (p AudioPacket) StartSample() int64 {
	return p.Granule - int64(p.Samples)
}

// Track kinds used by the container layer.
type TrackKind int

const (
	TrackVideo TrackKind = 1
	TrackAudio TrackKind = 2
)

// String returns "video" or "audio".
func (k TrackKind) String() string {
	switch k {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Codec identifiers as stored in the container.
const (
	CodecVP8          = "V_VP8"
	CodecVP9          = "V_VP9"
	CodecUncompressed = "V_UNCOMPRESSED"
	CodecVorbis       = "A_VORBIS"
	CodecPCMFloat     = "A_PCM/FLOAT/IEEE"
)

// IsVideoCodec reports whether the id is an importable video codec.
func IsVideoCodec(id string) bool {
	switch id {
	case CodecVP8, CodecVP9, CodecUncompressed:
		return true
	}
	return false
}

// IsAudioCodec reports whether the id is an importable audio codec.
func IsAudioCodec(id string) bool {
	switch id {
	case CodecVorbis, CodecPCMFloat:
		return true
	}
	return false
}
