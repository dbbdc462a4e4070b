package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/webmio/pkg/importer"
	"github.com/user/webmio/pkg/timebase"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	if err := app.Run(append([]string{"webmio"}, args...)); err != nil {
		t.Fatalf("webmio %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func exportRaw(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	out := filepath.Join(dir, "clip.webm")
	args := []string{
		"export", "-Q",
		"-o", out,
		"--video-codec", "raw",
		"--audio-codec", "pcm",
		"--fps", "24",
		"--frames", "6",
		"-W", "32", "-H", "32",
		"--channels", "1",
	}
	run(t, append(args, extra...)...)
	return out
}

func openFile(t *testing.T, path string) *importer.Source {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	src, err := importer.Open(f, importer.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return src
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	out := exportRaw(t, dir, "--summary", filepath.Join(dir, "summary.md"))

	info := openFile(t, out).Info()
	if !info.HasVideo || !info.HasAudio {
		t.Fatalf("expected video and audio, got %+v", info)
	}
	if info.FrameRate() != (timebase.Rational{Num: 24, Den: 1}) {
		t.Errorf("expected 24/1 fps, got %s", info.FrameRate())
	}
	if info.FrameCount != 6 || info.Width != 32 || info.Height != 32 {
		t.Errorf("unexpected video info: %+v", info)
	}

	summary, err := os.ReadFile(filepath.Join(dir, "summary.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(summary), out) {
		t.Errorf("expected summary to name the output, got:\n%s", summary)
	}
}

func TestExport_ConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "webmio.yaml")
	yaml := `
timeline:
  frame_rate: "30000/1001"
  frames: 3
video:
  enabled: true
  codec: raw
  width: 16
  height: 16
audio:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(yaml), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := filepath.Join(dir, "config.webm")
	run(t, "export", "-Q", "-c", configPath, "-o", out, "--frames", "5")

	info := openFile(t, out).Info()
	if info.HasAudio {
		t.Error("expected no audio track")
	}
	if info.FrameCount != 5 {
		t.Errorf("expected the flag to override frames, got %d", info.FrameCount)
	}
	if info.FrameRate() != (timebase.Rational{Num: 30000, Den: 1001}) {
		t.Errorf("expected 30000/1001 fps, got %s", info.FrameRate())
	}
}

func TestExport_DeadlineAndControls(t *testing.T) {
	dir := t.TempDir()
	out := exportRaw(t, dir, "--deadline", "realtime", "--control", "cpu-used=8")
	if info := openFile(t, out).Info(); info.FrameCount != 6 {
		t.Errorf("expected 6 frames, got %d", info.FrameCount)
	}

	app := newApp()
	var buf bytes.Buffer
	app.Writer = &buf
	app.ErrWriter = &buf
	err := app.Run([]string{"webmio", "export", "-Q", "-o", filepath.Join(dir, "bad.webm"), "--deadline", "fastest"})
	if err == nil || !strings.Contains(err.Error(), "deadline") {
		t.Errorf("expected a deadline error, got %v", err)
	}
}

func TestParseControls(t *testing.T) {
	controls, err := parseControls([]string{"cpu-used=8", " sharpness = 2 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if controls["cpu-used"] != 8 || controls["sharpness"] != 2 || len(controls) != 2 {
		t.Errorf("unexpected controls: %v", controls)
	}

	for _, bad := range []string{"cpu-used", "=3", "cpu-used=fast"} {
		if _, err := parseControls([]string{bad}); err == nil {
			t.Errorf("expected an error for %q", bad)
		}
	}
}

func TestInfo(t *testing.T) {
	clip := exportRaw(t, t.TempDir())

	text := run(t, "info", "-Q", clip)
	if !strings.Contains(text, "32x32") {
		t.Errorf("expected frame size in info output, got:\n%s", text)
	}

	md := run(t, "info", "-Q", "--format", "markdown", clip)
	if !strings.Contains(md, "| ") {
		t.Errorf("expected a markdown table, got:\n%s", md)
	}
}

func TestFrame(t *testing.T) {
	dir := t.TempDir()
	clip := exportRaw(t, dir)

	pattern := filepath.Join(dir, "frame-%03d.png")
	run(t, "frame", "-Q", "-o", pattern, "--count", "2", clip, "3")

	for _, name := range []string{"frame-003.png", "frame-004.png"} {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
			t.Errorf("%s: expected 32x32, got %dx%d", name, b.Dx(), b.Dy())
		}
	}
}

func TestAudio(t *testing.T) {
	dir := t.TempDir()
	clip := exportRaw(t, dir)

	out := filepath.Join(dir, "audio.f32")
	run(t, "audio", "-Q", "-o", out, "--start", "100", "--count", "1000", clip)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 1000*4 {
		t.Errorf("expected 4000 bytes, got %d", len(data))
	}
}

func TestFramePath(t *testing.T) {
	tests := []struct {
		pattern string
		index   int64
		count   int
		want    string
	}{
		{"out.png", 7, 1, "out.png"},
		{"out.png", 7, 3, "out-00007.png"},
		{"f%04d.png", 7, 3, "f0007.png"},
	}
	for _, tt := range tests {
		if got := framePath(tt.pattern, tt.index, tt.count); got != tt.want {
			t.Errorf("framePath(%q, %d, %d) = %q, want %q", tt.pattern, tt.index, tt.count, got, tt.want)
		}
	}
}
