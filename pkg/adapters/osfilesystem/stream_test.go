package osfilesystem

import (
	"io"
	"path/filepath"
	"testing"
)

func TestStream_CreateWriteSeek(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out", "clip.webm")

	s, err := fs.CreateStream(path)
	if err != nil {
		t.Fatalf("CreateStream failed: %v", err)
	}
	if _, err := s.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Patch a size field in place.
	if _, err := s.Seek(2, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if _, err := s.Write([]byte("ab")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if pos, _ := s.Position(); pos != 4 {
		t.Errorf("expected position 4, got %d", pos)
	}
	if size, _ := s.Size(); size != 10 {
		t.Errorf("expected size 10, got %d", size)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "01ab456789" {
		t.Errorf("expected %q, got %q", "01ab456789", data)
	}
}

func TestStream_SeekHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	if err := New().WriteFile(path, []byte("0123456789")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tests := []struct {
		name    string
		fs      *FileSystem
		offset  int64
		mode    int
		wantPos int64
	}{
		{"current", New(), 1, io.SeekCurrent, 3},
		{"end", New(), -1, io.SeekEnd, 9},
		{"swapped current means end", New(WithSwappedSeekModes()), -1, io.SeekCurrent, 9},
		{"swapped end means current", New(WithSwappedSeekModes()), 1, io.SeekEnd, 3},
		{"swapped start unchanged", New(WithSwappedSeekModes()), 5, io.SeekStart, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := tt.fs.OpenStream(path)
			if err != nil {
				t.Fatalf("OpenStream failed: %v", err)
			}
			defer bs.Close()
			s := bs.(*Stream)

			if _, err := s.Seek(2, io.SeekStart); err != nil {
				t.Fatalf("Seek failed: %v", err)
			}
			pos, err := s.SeekHost(tt.offset, tt.mode)
			if err != nil {
				t.Fatalf("SeekHost failed: %v", err)
			}
			if pos != tt.wantPos {
				t.Errorf("expected position %d, got %d", tt.wantPos, pos)
			}
		})
	}
}

func TestHostWhence(t *testing.T) {
	if got := HostWhence(io.SeekCurrent, false); got != io.SeekCurrent {
		t.Errorf("expected SeekCurrent, got %d", got)
	}
	if got := HostWhence(io.SeekCurrent, true); got != io.SeekEnd {
		t.Errorf("expected SeekEnd, got %d", got)
	}
	if got := HostWhence(io.SeekEnd, true); got != io.SeekCurrent {
		t.Errorf("expected SeekCurrent, got %d", got)
	}
	if got := HostWhence(io.SeekStart, true); got != io.SeekStart {
		t.Errorf("expected SeekStart, got %d", got)
	}
}
