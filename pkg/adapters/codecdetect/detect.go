// Package codecdetect sniffs the container format of a media file, and the
// video codec of MP4 files so they can be reported by name.
package codecdetect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/at-wat/ebml-go"
)

// Container represents a container format.
type Container string

const (
	ContainerWebM     Container = "webm"
	ContainerMatroska Container = "matroska"
	ContainerMP4      Container = "mp4"
	ContainerUnknown  Container = "unknown"
)

// Codec represents a video codec type found in an MP4 file.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecHEVC    Codec = "hevc"
	CodecAV1     Codec = "av1"
	CodecVP9     Codec = "vp9"
	CodecUnknown Codec = "unknown"
)

// Result is what Detect found.
type Result struct {
	Container Container
	// DocType is the EBML document type, empty for other containers.
	DocType string
	// VideoCodec is set for MP4 files only.
	VideoCodec Codec
}

var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

type ebmlHeader struct {
	EBMLDocType string
}

type ebmlHeaderElement struct {
	Header ebmlHeader `ebml:"EBML"`
}

// DetectFromFile detects the container of a file.
func DetectFromFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{Container: ContainerUnknown}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Detect(f)
}

// DetectFromBytes detects the container of in-memory data.
func DetectFromBytes(data []byte) (Result, error) {
	return Detect(bytes.NewReader(data))
}

// Detect sniffs the container of reader and rewinds it to the start.
func Detect(reader io.ReadSeeker) (Result, error) {
	res, err := detect(reader)
	if _, serr := reader.Seek(0, io.SeekStart); serr != nil && err == nil {
		err = fmt.Errorf("seek: %w", serr)
	}
	return res, err
}

func detect(reader io.ReadSeeker) (Result, error) {
	unknown := Result{Container: ContainerUnknown}

	head := make([]byte, 12)
	n, err := io.ReadFull(reader, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return unknown, fmt.Errorf("read header: %w", err)
	}
	head = head[:n]

	switch {
	case len(head) >= 4 && bytes.Equal(head[:4], ebmlMagic):
		return detectEBML(reader)
	case len(head) >= 8 && string(head[4:8]) == "ftyp":
		return detectMP4(reader)
	}
	return unknown, nil
}

func detectEBML(reader io.ReadSeeker) (Result, error) {
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return Result{Container: ContainerUnknown}, fmt.Errorf("seek: %w", err)
	}

	// Only the header element is read; the segment is left alone.
	head := make([]byte, 4+8)
	n, _ := io.ReadFull(reader, head)
	size, width, ok := readVint(head[4:n])
	if !ok {
		return Result{Container: ContainerUnknown}, fmt.Errorf("malformed EBML header size")
	}
	total := 4 + width + int(size)
	buf := make([]byte, total)
	copy(buf, head[:n])
	if total > n {
		if _, err := io.ReadFull(reader, buf[n:]); err != nil {
			return Result{Container: ContainerUnknown}, fmt.Errorf("read EBML header: %w", err)
		}
	}

	var header ebmlHeaderElement
	if err := ebml.Unmarshal(bytes.NewReader(buf[:total]), &header); err != nil && err != io.EOF {
		return Result{Container: ContainerUnknown}, fmt.Errorf("decode EBML header: %w", err)
	}

	res := Result{Container: ContainerUnknown, DocType: header.Header.EBMLDocType}
	switch header.Header.EBMLDocType {
	case "webm":
		res.Container = ContainerWebM
	case "matroska":
		res.Container = ContainerMatroska
	}
	return res, nil
}

// readVint decodes an EBML size and returns its value and byte width.
func readVint(b []byte) (uint64, int, bool) {
	if len(b) == 0 || b[0] == 0 {
		return 0, 0, false
	}
	width := 1
	for mask := byte(0x80); b[0]&mask == 0; mask >>= 1 {
		width++
	}
	if width > len(b) {
		return 0, 0, false
	}
	v := uint64(b[0] & (0xFF >> width))
	for i := 1; i < width; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, width, true
}

func detectMP4(reader io.ReadSeeker) (Result, error) {
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return Result{Container: ContainerUnknown}, fmt.Errorf("seek: %w", err)
	}
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return Result{Container: ContainerMP4, VideoCodec: CodecUnknown}, fmt.Errorf("decode mp4: %w", err)
	}
	return Result{Container: ContainerMP4, VideoCodec: detectFromMP4File(mp4File)}, nil
}

func detectFromMP4File(mp4File *mp4.File) Codec {
	// Check fragmented MP4
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		for _, trak := range mp4File.Init.Moov.Traks {
			if codec := detectCodecFromTrack(trak); codec != CodecUnknown {
				return codec
			}
		}
	}

	// Check progressive MP4
	if mp4File.Moov != nil {
		for _, trak := range mp4File.Moov.Traks {
			if codec := detectCodecFromTrack(trak); codec != CodecUnknown {
				return codec
			}
		}
	}

	return CodecUnknown
}

func detectCodecFromTrack(trak *mp4.TrakBox) Codec {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return CodecUnknown
	}

	// Only process video tracks
	if trak.Mdia.Hdlr.HandlerType != "vide" {
		return CodecUnknown
	}

	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "hvc1", "hev1":
			return CodecHEVC
		case "av01":
			return CodecAV1
		case "vp09":
			return CodecVP9
		}
	}

	return CodecUnknown
}
