package filesink

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/user/webmio/pkg/mocks"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem())

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveStats(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	data := []byte{0x01, 0x02, 0x03}
	if err := sink.SaveStats(data); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "firstpass.stats")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if !bytes.Equal(saved, data) {
		t.Errorf("expected %v, got %v", data, saved)
	}
}

func TestSink_SaveReportJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	data := []byte(`{"passes": 2}`)
	if err := sink.SaveReportJSON(data); err != nil {
		t.Fatalf("SaveReportJSON failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "report.json")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Errorf("expected file to be saved at %s", expectedPath)
	}
	if string(saved) != string(data) {
		t.Errorf("expected %q, got %q", data, saved)
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	if err := sink.SaveFrame(5, img); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "frames", "frame-00005.png")
	saved, ok := fs.GetFile(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	decoded, err := png.Decode(bytes.NewReader(saved))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("expected 8x6, got %dx%d", b.Dx(), b.Dy())
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r>>8 != 255 {
		t.Errorf("expected red pixel, got r=%d", r>>8)
	}
}

func TestSink_MultipleFrames(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 10; i++ {
		if err := sink.SaveFrame(i, img); err != nil {
			t.Fatalf("SaveFrame %d failed: %v", i, err)
		}
	}

	files := fs.Files()
	if len(files) != 10 {
		t.Errorf("expected 10 files, got %d", len(files))
	}
}
