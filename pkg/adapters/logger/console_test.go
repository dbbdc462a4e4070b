package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/user/webmio/pkg/ports"
)

func TestConsoleLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, ports.LevelInfo, false)

	log.Debug("hidden %d", 1)
	log.Info("encoding %d test frames", 10)
	log.Warn("%s unavailable, using %s", "V_VP9", "V_UNCOMPRESSED")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("expected debug to be filtered, got %q", got)
	}
	if !strings.Contains(got, "encoding 10 test frames\n") {
		t.Errorf("expected info line, got %q", got)
	}
	if !strings.Contains(got, "warn: V_VP9 unavailable, using V_UNCOMPRESSED\n") {
		t.Errorf("expected prefixed warning, got %q", got)
	}
}

func TestConsoleLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, ports.LevelQuiet, false)
	log.Error("boom")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestConsoleLogger_WithComponentNests(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, ports.LevelDebug, false)

	log.WithComponent("encode").WithComponent("webm").Debug("cluster %d at %d: %d blocks", 2, 1000, 24)

	want := "[encode/webm] cluster 2 at 1000: 24 blocks\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestConsoleLogger_ConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, ports.LevelDebug, false).WithComponent("importer")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Debug("frame %d decoded", i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 16 {
		t.Fatalf("expected 16 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[importer] frame ") {
			t.Errorf("interleaved line %q", line)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    ports.LogLevel
		wantErr bool
	}{
		{"debug", ports.LevelDebug, false},
		{"INFO", ports.LevelInfo, false},
		{"warning", ports.LevelWarn, false},
		{" error ", ports.LevelError, false},
		{"quiet", ports.LevelQuiet, false},
		{"loud", ports.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ports.ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
