package webm

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/at-wat/ebml-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
)

var (
	// ErrNotInitialized is returned when the muxer is used before Init.
	ErrNotInitialized = errors.New("webm: muxer not initialized")

	// ErrTracksLocked is returned when a track is added after the first frame.
	ErrTracksLocked = errors.New("webm: tracks are fixed once frames are written")

	// ErrUnknownTrack is returned for a track number that was never added.
	ErrUnknownTrack = errors.New("webm: unknown track")

	// ErrNonMonotonic is returned when a frame is older than the previous one.
	ErrNonMonotonic = errors.New("webm: timecodes must not decrease")

	// ErrFinalized is returned when the muxer is used after Finalize.
	ErrFinalized = errors.New("webm: muxer already finalized")
)

// DefaultMaxClusterDuration bounds clusters of audio-only files, in timecode units
// at the default scale.
const DefaultMaxClusterDuration = 5000

// TrackSpec describes a track to add.
type TrackSpec struct {
	Kind    media.TrackKind
	CodecID string
	Name    string

	// Video
	Width     int
	Height    int
	FrameRate timebase.Rational

	// Audio
	SampleRate int
	Channels   int
	BitDepth   int

	CodecPrivate []byte
}

// Options configures a Muxer.
type Options struct {
	TimecodeScale      int64
	MuxingApp          string
	WritingApp         string
	MaxClusterDuration int64
	Logger             ports.Logger
}

// DefaultOptions returns Options with default values.
func DefaultOptions() Options {
	return Options{
		TimecodeScale:      timebase.DefaultTimecodeScale,
		MuxingApp:          "webmio",
		WritingApp:         "webmio",
		MaxClusterDuration: DefaultMaxClusterDuration,
	}
}

type muxTrack struct {
	entry    trackEntry
	kind     media.TrackKind
	frameDur int64 // timecode units, video only
	lastTc   int64
	written  bool
}

type openCluster struct {
	timecode int64
	blocks   []ebml.Block
	cueTime  int64
	hasCue   bool
}

// Muxer writes a seekable, cue-indexed WebM file. Frames must arrive in
// non-decreasing timecode order across all tracks.
type Muxer struct {
	opts Options

	w   io.WriteSeeker
	pos int64 // absolute offset of the next write

	tracks   []*muxTrack
	cueTrack uint64

	headerWritten bool
	finalized     bool

	segmentSizePos int64
	segmentStart   int64
	infoPos        int64
	infoLen        int
	info           segmentInfo

	cluster  *openCluster
	clusters int
	cues     []cuePoint
	lastTc   int64
	anyFrame bool
}

// NewMuxer creates a muxer with the given options.
func NewMuxer(opts Options) *Muxer {
	if opts.TimecodeScale <= 0 {
		opts.TimecodeScale = timebase.DefaultTimecodeScale
	}
	if opts.MaxClusterDuration <= 0 {
		opts.MaxClusterDuration = DefaultMaxClusterDuration * timebase.DefaultTimecodeScale / opts.TimecodeScale
	}
	if opts.MuxingApp == "" {
		opts.MuxingApp = "webmio"
	}
	if opts.WritingApp == "" {
		opts.WritingApp = opts.MuxingApp
	}
	return &Muxer{opts: opts}
}

// Init binds the output stream. The muxer owns it until Finalize.
func (m *Muxer) Init(w io.WriteSeeker) error {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return errors.Wrap(err, "query output position")
	}
	m.w = w
	m.pos = pos
	return nil
}

// AddTrack registers a track and returns its track number.
func (m *Muxer) AddTrack(ts TrackSpec) (uint64, error) {
	if m.w == nil {
		return 0, ErrNotInitialized
	}
	if m.headerWritten {
		return 0, ErrTracksLocked
	}

	number := uint64(len(m.tracks) + 1)
	entry := trackEntry{
		Name:         ts.Name,
		TrackNumber:  number,
		TrackUID:     newUID(),
		CodecID:      ts.CodecID,
		CodecPrivate: ts.CodecPrivate,
	}
	t := &muxTrack{kind: ts.Kind}

	switch ts.Kind {
	case media.TrackVideo:
		entry.TrackType = trackTypeVideo
		entry.Video = &videoSettings{
			PixelWidth:  uint64(ts.Width),
			PixelHeight: uint64(ts.Height),
		}
		if ts.FrameRate.Num > 0 && ts.FrameRate.Den > 0 {
			ns := (1_000_000_000*ts.FrameRate.Den + ts.FrameRate.Num/2) / ts.FrameRate.Num
			entry.DefaultDuration = uint64(ns)
			t.frameDur = (ns + m.opts.TimecodeScale/2) / m.opts.TimecodeScale
		}
	case media.TrackAudio:
		entry.TrackType = trackTypeAudio
		entry.Audio = &audioSettings{
			SamplingFrequency: float64(ts.SampleRate),
			Channels:          uint64(ts.Channels),
			BitDepth:          uint64(ts.BitDepth),
		}
	default:
		return 0, errors.Errorf("webm: unsupported track kind %d", ts.Kind)
	}

	t.entry = entry
	m.tracks = append(m.tracks, t)
	return number, nil
}

// RegisterCuePoint selects the track whose keyframes are indexed in Cues.
func (m *Muxer) RegisterCuePoint(track uint64) error {
	if _, err := m.track(track); err != nil {
		return err
	}
	m.cueTrack = track
	return nil
}

func (m *Muxer) track(number uint64) (*muxTrack, error) {
	if number == 0 || int(number) > len(m.tracks) {
		return nil, errors.Wrapf(ErrUnknownTrack, "track %d", number)
	}
	return m.tracks[number-1], nil
}

// AddFrame appends one block. The payload is copied.
func (m *Muxer) AddFrame(track uint64, payload []byte, timecode int64, keyframe bool) error {
	if m.finalized {
		return ErrFinalized
	}
	if m.w == nil {
		return ErrNotInitialized
	}
	t, err := m.track(track)
	if err != nil {
		return err
	}
	if timecode < 0 || (m.anyFrame && timecode < m.lastTc) {
		return errors.Wrapf(ErrNonMonotonic, "track %d timecode %d after %d", track, timecode, m.lastTc)
	}

	if !m.headerWritten {
		if err := m.writeHeader(); err != nil {
			return err
		}
	}

	if m.needsNewCluster(track, t, timecode, keyframe) {
		if err := m.flushCluster(); err != nil {
			return err
		}
		m.cluster = &openCluster{timecode: timecode}
	}

	c := m.cluster
	if track == m.cueTrack && keyframe && !c.hasCue {
		c.cueTime = timecode
		c.hasCue = true
	}
	c.blocks = append(c.blocks, ebml.Block{
		TrackNumber: track,
		Timecode:    int16(timecode - c.timecode),
		Keyframe:    keyframe,
		Data:        [][]byte{append([]byte(nil), payload...)},
	})

	t.lastTc = timecode
	t.written = true
	m.lastTc = timecode
	m.anyFrame = true
	return nil
}

func (m *Muxer) needsNewCluster(track uint64, t *muxTrack, timecode int64, keyframe bool) bool {
	c := m.cluster
	if c == nil {
		return true
	}
	if timecode-c.timecode > math.MaxInt16 {
		return true
	}
	if track != m.cueTrack || len(c.blocks) == 0 {
		return false
	}
	if t.kind == media.TrackVideo {
		return keyframe
	}
	return timecode-c.timecode >= m.opts.MaxClusterDuration
}

func (m *Muxer) write(p []byte) error {
	n, err := m.w.Write(p)
	m.pos += int64(n)
	if err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

func (m *Muxer) marshal(v interface{}) error {
	var buf bytes.Buffer
	if err := ebml.Marshal(v, &buf); err != nil {
		return errors.Wrap(err, "marshal element")
	}
	return m.write(buf.Bytes())
}

func (m *Muxer) writeHeader() error {
	if len(m.tracks) == 0 {
		return errors.New("webm: no tracks added")
	}
	if m.cueTrack == 0 {
		m.cueTrack = m.defaultCueTrack()
	}

	header := headerElement{Header: ebmlHeader{
		EBMLVersion:            1,
		EBMLReadVersion:        1,
		EBMLMaxIDLength:        4,
		EBMLMaxSizeLength:      8,
		EBMLDocType:            docTypeWebM,
		EBMLDocTypeVersion:     2,
		EBMLDocTypeReadVersion: 2,
	}}
	if err := m.marshal(&header); err != nil {
		return err
	}

	// Segment with an 8-byte size patched at finalize.
	if err := m.write(segmentID); err != nil {
		return err
	}
	m.segmentSizePos = m.pos
	if err := m.write(encodeSize8(0)); err != nil {
		return err
	}
	m.segmentStart = m.pos

	sid := uuid.New()
	m.info = segmentInfo{
		TimecodeScale: uint64(m.opts.TimecodeScale),
		SegmentUID:    sid[:],
		MuxingApp:     m.opts.MuxingApp,
		WritingApp:    m.opts.WritingApp,
	}
	m.infoPos = m.pos
	if err := m.marshal(&infoElement{Info: m.info}); err != nil {
		return err
	}
	m.infoLen = int(m.pos - m.infoPos)

	entries := make([]trackEntry, len(m.tracks))
	for i, t := range m.tracks {
		entries[i] = t.entry
	}
	if err := m.marshal(&tracksElement{Tracks: tracks{TrackEntry: entries}}); err != nil {
		return err
	}

	m.headerWritten = true
	m.log("Header written: %d tracks, cue track %d", len(m.tracks), m.cueTrack)
	return nil
}

// defaultCueTrack prefers the first video track.
func (m *Muxer) defaultCueTrack() uint64 {
	for i, t := range m.tracks {
		if t.kind == media.TrackVideo {
			return uint64(i + 1)
		}
	}
	return 1
}

func (m *Muxer) flushCluster() error {
	c := m.cluster
	if c == nil || len(c.blocks) == 0 {
		return nil
	}
	position := m.pos - m.segmentStart
	if err := m.marshal(&clusterElement{Cluster: cluster{
		Timecode:    uint64(c.timecode),
		SimpleBlock: c.blocks,
	}}); err != nil {
		return errors.Wrapf(err, "cluster at %d", c.timecode)
	}
	if c.hasCue {
		m.cues = append(m.cues, cuePoint{
			CueTime: uint64(c.cueTime),
			CueTrackPositions: []cueTrackPosition{{
				CueTrack:           m.cueTrack,
				CueClusterPosition: uint64(position),
			}},
		})
	}
	m.clusters++
	m.log("Cluster %d written at %d: %d blocks", m.clusters, position, len(c.blocks))
	m.cluster = nil
	return nil
}

// Duration returns the current segment duration in timecode units.
func (m *Muxer) Duration() int64 {
	var d int64
	for _, t := range m.tracks {
		if !t.written {
			continue
		}
		if end := t.lastTc + t.frameDur; end > d {
			d = end
		}
	}
	return d
}

// Finalize flushes the last cluster, writes Cues and patches the segment
// size and duration. The output must still be seekable.
func (m *Muxer) Finalize() error {
	if m.finalized {
		return ErrFinalized
	}
	if m.w == nil {
		return ErrNotInitialized
	}
	m.finalized = true

	if !m.headerWritten {
		if err := m.writeHeader(); err != nil {
			return err
		}
	}
	if err := m.flushCluster(); err != nil {
		return err
	}
	if len(m.cues) > 0 {
		if err := m.marshal(&cuesElement{Cues: cues{CuePoint: m.cues}}); err != nil {
			return errors.Wrap(err, "cues")
		}
	}

	end := m.pos

	m.info.Duration = float64(m.Duration())
	var info bytes.Buffer
	if err := ebml.Marshal(&infoElement{Info: m.info}, &info); err != nil {
		return errors.Wrap(err, "marshal info")
	}
	if info.Len() != m.infoLen {
		return errors.Errorf("webm: info grew from %d to %d bytes", m.infoLen, info.Len())
	}
	if err := m.patch(m.infoPos, info.Bytes()); err != nil {
		return errors.Wrap(err, "patch info")
	}
	if err := m.patch(m.segmentSizePos, encodeSize8(end-m.segmentStart)); err != nil {
		return errors.Wrap(err, "patch segment size")
	}
	if _, err := m.w.Seek(end, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to end")
	}
	m.pos = end

	m.log("Finalized: %d clusters, %d cue points, duration %d", m.clusters, len(m.cues), m.Duration())
	return nil
}

func (m *Muxer) patch(at int64, data []byte) error {
	if _, err := m.w.Seek(at, io.SeekStart); err != nil {
		return err
	}
	_, err := m.w.Write(data)
	return err
}

// Clusters returns the number of clusters written so far.
func (m *Muxer) Clusters() int {
	return m.clusters
}

func (m *Muxer) log(msg string, args ...interface{}) {
	if m.opts.Logger != nil {
		m.opts.Logger.Debug(msg, args...)
	}
}

// encodeSize8 encodes an element size as an 8-byte EBML variable integer.
func encodeSize8(size int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(size))
	b[0] = 0x01
	return b
}

func newUID() uint64 {
	id := uuid.New()
	v := binary.BigEndian.Uint64(id[:8])
	if v == 0 {
		v = 1
	}
	return v
}
