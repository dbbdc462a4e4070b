package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/user/webmio/pkg/adapters/logger"
	"github.com/user/webmio/pkg/adapters/rawcodec"
	"github.com/user/webmio/pkg/importer"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/mocks"
	"github.com/user/webmio/pkg/pipeline"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/stages/analyze"
	"github.com/user/webmio/pkg/stages/encode"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/videoenc"
)

// mockAnalyzeStage is a mock for the statistics pass.
type mockAnalyzeStage struct {
	result pipeline.AnalyzeResult
	err    error
	inputs []pipeline.AnalyzeInput
}

func (m *mockAnalyzeStage) Execute(ctx context.Context, input pipeline.AnalyzeInput) (pipeline.AnalyzeResult, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return pipeline.AnalyzeResult{}, m.err
	}
	return m.result, nil
}

// mockEncodeStage is a mock for the final pass. It writes a marker to the output.
type mockEncodeStage struct {
	result pipeline.EncodeResult
	err    error
	inputs []pipeline.EncodeInput
}

func (m *mockEncodeStage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return pipeline.EncodeResult{}, m.err
	}
	if _, err := input.Output.Write([]byte("webm")); err != nil {
		return pipeline.EncodeResult{}, err
	}
	return m.result, nil
}

func testConfig() Config {
	config := DefaultConfig()
	config.OutputPath = "output.webm"
	config.FrameRate = timebase.Rational{Num: 24, Den: 1}
	config.FrameCount = 10
	config.Video.Codec = media.CodecUncompressed
	config.Video.Width = 16
	config.Video.Height = 16
	config.Audio.Codec = media.CodecPCMFloat
	config.Audio.Channels = 1
	return config
}

func TestOrchestrator_Run_SinglePass(t *testing.T) {
	analyzeStage := &mockAnalyzeStage{}
	encodeStage := &mockEncodeStage{
		result: pipeline.EncodeResult{VideoFrames: 10, Clusters: 1, CueTrack: media.TrackVideo, FileSize: 4},
	}
	mockFS := mocks.NewFileSystem()

	orch := New(analyzeStage, encodeStage, mockFS, &mocks.ProgressReporter{}, mocks.NewDebugSink(false), logger.NewNoop())
	result, err := orch.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analyzeStage.inputs) != 0 {
		t.Error("expected no statistics pass for constant quality")
	}
	if len(encodeStage.inputs) != 1 {
		t.Fatalf("expected 1 encode call, got %d", len(encodeStage.inputs))
	}

	in := encodeStage.inputs[0]
	if in.Progress.Pass != 0 || in.Progress.Passes != 1 {
		t.Errorf("expected pass 0 of 1, got %d of %d", in.Progress.Pass, in.Progress.Passes)
	}
	if in.Video == nil || in.Video.FrameRate != (timebase.Rational{Num: 24, Den: 1}) {
		t.Errorf("expected video frame rate taken from the timeline, got %+v", in.Video)
	}
	if in.Audio == nil || in.Audio.TotalSamples != 20000 {
		t.Errorf("expected 20000 audio samples, got %+v", in.Audio)
	}
	if in.Stats != nil {
		t.Error("expected no statistics for a single pass")
	}

	if result.Passes != 1 || result.VideoFrames != 10 || result.CueTrack != "video" {
		t.Errorf("unexpected result: %+v", result)
	}

	data, ok := mockFS.GetFile("output.webm")
	if !ok || string(data) != "webm" {
		t.Errorf("expected output written, got %q", data)
	}
}

func TestOrchestrator_Run_TwoPass(t *testing.T) {
	analyzeStage := &mockAnalyzeStage{
		result: pipeline.AnalyzeResult{Stats: videoenc.Statistics{Data: []byte{1, 2, 3}, Records: 10}, Frames: 10},
	}
	encodeStage := &mockEncodeStage{}
	sink := mocks.NewDebugSink(true)

	config := testConfig()
	config.Video.RateControl = ports.RateVBR

	orch := New(analyzeStage, encodeStage, mocks.NewFileSystem(), &mocks.ProgressReporter{}, sink, logger.NewNoop())
	result, err := orch.Run(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analyzeStage.inputs) != 1 {
		t.Fatalf("expected 1 statistics pass, got %d", len(analyzeStage.inputs))
	}
	if p := analyzeStage.inputs[0].Progress; p.Pass != 0 || p.Passes != 2 {
		t.Errorf("expected statistics pass 0 of 2, got %d of %d", p.Pass, p.Passes)
	}
	in := encodeStage.inputs[0]
	if in.Progress.Pass != 1 || in.Progress.Passes != 2 {
		t.Errorf("expected final pass 1 of 2, got %d of %d", in.Progress.Pass, in.Progress.Passes)
	}
	if in.Stats == nil || in.Stats.Records != 10 {
		t.Errorf("expected statistics handed to the final pass, got %+v", in.Stats)
	}
	if result.Passes != 2 {
		t.Errorf("expected 2 passes, got %d", result.Passes)
	}

	if !bytes.Equal(sink.Stats, []byte{1, 2, 3}) {
		t.Errorf("expected statistics saved to the debug sink, got %v", sink.Stats)
	}
	var report RunResult
	if err := json.Unmarshal(sink.ReportJSON, &report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OutputPath != "output.webm" || report.RateControl != "vbr" {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestOrchestrator_Run_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("nothing to export", func(t *testing.T) {
		config := testConfig()
		config.ExportVideo = false
		config.ExportAudio = false
		orch := New(&mockAnalyzeStage{}, &mockEncodeStage{}, mocks.NewFileSystem(), &mocks.ProgressReporter{}, &mocks.NullSink{}, logger.NewNoop())
		if _, err := orch.Run(context.Background(), config); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid time base", func(t *testing.T) {
		config := testConfig()
		config.FrameRate = timebase.Rational{}
		orch := New(&mockAnalyzeStage{}, &mockEncodeStage{}, mocks.NewFileSystem(), &mocks.ProgressReporter{}, &mocks.NullSink{}, logger.NewNoop())
		if _, err := orch.Run(context.Background(), config); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("statistics pass", func(t *testing.T) {
		config := testConfig()
		config.Video.RateControl = ports.RateVBR
		encodeStage := &mockEncodeStage{}
		orch := New(&mockAnalyzeStage{err: boom}, encodeStage, mocks.NewFileSystem(), &mocks.ProgressReporter{}, &mocks.NullSink{}, logger.NewNoop())
		if _, err := orch.Run(context.Background(), config); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
		if len(encodeStage.inputs) != 0 {
			t.Error("expected no final pass after a failed statistics pass")
		}
	})

	t.Run("create output", func(t *testing.T) {
		fs := mocks.NewFileSystem()
		fs.FailFunc = mocks.FailOn(mocks.OpCreate, boom)
		orch := New(&mockAnalyzeStage{}, &mockEncodeStage{}, fs, &mocks.ProgressReporter{}, &mocks.NullSink{}, logger.NewNoop())
		if _, err := orch.Run(context.Background(), testConfig()); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})

	t.Run("encode", func(t *testing.T) {
		orch := New(&mockAnalyzeStage{}, &mockEncodeStage{err: boom}, mocks.NewFileSystem(), &mocks.ProgressReporter{}, &mocks.NullSink{}, logger.NewNoop())
		if _, err := orch.Run(context.Background(), testConfig()); !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	})
}

func TestOrchestrator_Run_EndToEnd(t *testing.T) {
	progress := &mocks.ProgressReporter{}
	orch := New(
		analyze.NewStage(rawcodec.NewVideoEncoder(2), &mocks.FrameSource{Width: 16, Height: 16}, logger.NewNoop()),
		encode.NewStage(
			rawcodec.NewVideoEncoder(2),
			rawcodec.NewAudioEncoder(480),
			&mocks.FrameSource{Width: 16, Height: 16},
			&mocks.AudioSource{Channels: 1},
			&mocks.NullSink{},
			logger.NewNoop(),
		),
		mocks.NewFileSystem(),
		progress,
		&mocks.NullSink{},
		logger.NewNoop(),
	)

	fs := orch.fs
	result, err := orch.Run(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.VideoFrames != 10 || result.AudioSamples != 20000 {
		t.Errorf("unexpected result: %+v", result)
	}
	if n := len(progress.Fractions); n != 10 || progress.Fractions[n-1] != 1 {
		t.Errorf("expected 10 progress reports ending at 1, got %v", progress.Fractions)
	}

	stream, err := fs.OpenStream("output.webm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	src, err := importer.Open(stream, importer.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info := src.Info()
	if !info.HasVideo || !info.HasAudio {
		t.Fatalf("expected video and audio, got %+v", info)
	}
	if info.FrameRate() != (timebase.Rational{Num: 24, Den: 1}) {
		t.Errorf("expected 24/1 fps, got %s", info.FrameRate())
	}

	frames, err := src.Frames()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := int64(0); i < 10; i++ {
		img, err := frames.GetFrame(context.Background(), i)
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if img.Width != 16 || img.Height != 16 {
			t.Errorf("frame %d: expected 16x16, got %dx%d", i, img.Width, img.Height)
		}
	}
}
