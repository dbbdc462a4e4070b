package codecdetect

import (
	"bytes"
	"io"
	"testing"

	"github.com/at-wat/ebml-go"
)

func ebmlFile(t *testing.T, docType string) []byte {
	t.Helper()
	var buf bytes.Buffer
	header := struct {
		Header struct {
			EBMLVersion uint64
			EBMLDocType string
		} `ebml:"EBML"`
	}{}
	header.Header.EBMLVersion = 1
	header.Header.EBMLDocType = docType
	if err := ebml.Marshal(&header, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// trailing bytes stand in for the segment
	buf.Write([]byte{0x18, 0x53, 0x80, 0x67, 0x01, 0, 0, 0, 0, 0, 0, 0})
	return buf.Bytes()
}

func TestDetect_WebM(t *testing.T) {
	res, err := DetectFromBytes(ebmlFile(t, "webm"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Container != ContainerWebM || res.DocType != "webm" {
		t.Errorf("expected webm, got %+v", res)
	}

	res, err = DetectFromBytes(ebmlFile(t, "matroska"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Container != ContainerMatroska {
		t.Errorf("expected matroska, got %+v", res)
	}
}

func TestDetect_Unknown(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("RIFF....WAVEfmt "), []byte{0x1A}} {
		res, err := DetectFromBytes(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Container != ContainerUnknown {
			t.Errorf("expected unknown for %q, got %+v", data, res)
		}
	}
}

func TestDetect_EmptyStream(t *testing.T) {
	res, err := Detect(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("unexpected error for an empty stream: %v", err)
	}
	if res.Container != ContainerUnknown {
		t.Errorf("expected unknown, got %+v", res)
	}
}

func TestDetect_RewindsReader(t *testing.T) {
	r := bytes.NewReader(ebmlFile(t, "webm"))
	if _, err := Detect(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, _ := r.Seek(0, io.SeekCurrent)
	if pos != 0 {
		t.Errorf("expected reader rewound to 0, got %d", pos)
	}
}

func TestDetect_MP4Signature(t *testing.T) {
	// A bare ftyp box: the container is recognised even without a moov.
	ftyp := []byte{0, 0, 0, 16, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0}
	res, _ := DetectFromBytes(ftyp)
	if res.Container != ContainerMP4 {
		t.Errorf("expected mp4, got %+v", res)
	}
}

func TestReadVint(t *testing.T) {
	tests := []struct {
		in    []byte
		value uint64
		width int
	}{
		{[]byte{0x81}, 1, 1},
		{[]byte{0x40, 0x02}, 2, 2},
		{[]byte{0x01, 0, 0, 0, 0, 0, 0x01, 0x00}, 256, 8},
	}
	for _, tt := range tests {
		v, w, ok := readVint(tt.in)
		if !ok || v != tt.value || w != tt.width {
			t.Errorf("readVint(%x): expected (%d,%d), got (%d,%d,%v)", tt.in, tt.value, tt.width, v, w, ok)
		}
	}
	if _, _, ok := readVint([]byte{0}); ok {
		t.Error("expected zero lead byte to fail")
	}
}
