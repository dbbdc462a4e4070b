package webm

import (
	"io"
	"sort"

	"github.com/at-wat/ebml-go"
	"github.com/pkg/errors"
	"github.com/user/webmio/pkg/media"
)

var (
	// ErrBadHeader is returned when the stream is not an EBML WebM/Matroska file.
	ErrBadHeader = errors.New("webm: bad header")

	// ErrNoBlock is returned when a seek finds no block for the track.
	ErrNoBlock = errors.New("webm: no block for track")
)

// Track describes a parsed track entry.
type Track struct {
	Number          uint64
	UID             uint64
	Kind            media.TrackKind
	Name            string
	CodecID         string
	CodecPrivate    []byte
	DefaultDuration int64 // nanoseconds, 0 when absent

	Width  int
	Height int

	SampleRate int
	Channels   int
	BitDepth   int
}

// Block is one frame of a parsed cluster.
type Block struct {
	Track    uint64
	Timecode int64 // absolute, timecode units
	Keyframe bool
	Frames   [][]byte
}

// Cluster is a parsed cluster with absolute block timecodes.
type Cluster struct {
	Timecode int64
	Blocks   []Block
}

// CuePoint is one parsed cue.
type CuePoint struct {
	Time            int64
	Track           uint64
	ClusterPosition uint64
}

// File is a read-only, fully parsed view of a WebM file.
type File struct {
	DocType       string
	TimecodeScale int64
	Duration      float64 // timecode units
	MuxingApp     string
	WritingApp    string

	Tracks   []Track
	Clusters []Cluster
	Cues     []CuePoint
}

// BlockRef addresses a block inside a File.
type BlockRef struct {
	Cluster int
	Index   int
}

// Parse reads a whole WebM file.
func Parse(r io.Reader) (*File, error) {
	var layout fileLayout
	if err := ebml.Unmarshal(r, &layout); err != nil && err != io.EOF {
		if layout.Header.EBMLDocType == "" {
			return nil, errors.Wrap(ErrBadHeader, err.Error())
		}
		return nil, errors.Wrap(err, "unmarshal segment")
	}

	docType := layout.Header.EBMLDocType
	if docType != docTypeWebM && docType != docTypeMatroska {
		return nil, errors.Wrapf(ErrBadHeader, "doc type %q", docType)
	}

	seg := layout.Segment
	f := &File{
		DocType:       docType,
		TimecodeScale: int64(seg.Info.TimecodeScale),
		Duration:      seg.Info.Duration,
		MuxingApp:     seg.Info.MuxingApp,
		WritingApp:    seg.Info.WritingApp,
	}
	if f.TimecodeScale == 0 {
		f.TimecodeScale = 1_000_000
	}

	for _, e := range seg.Tracks.TrackEntry {
		t := Track{
			Number:          e.TrackNumber,
			UID:             e.TrackUID,
			Name:            e.Name,
			CodecID:         e.CodecID,
			CodecPrivate:    e.CodecPrivate,
			DefaultDuration: int64(e.DefaultDuration),
		}
		switch e.TrackType {
		case trackTypeVideo:
			t.Kind = media.TrackVideo
		case trackTypeAudio:
			t.Kind = media.TrackAudio
		}
		if e.Video != nil {
			t.Width = int(e.Video.PixelWidth)
			t.Height = int(e.Video.PixelHeight)
		}
		if e.Audio != nil {
			t.SampleRate = int(e.Audio.SamplingFrequency + 0.5)
			t.Channels = int(e.Audio.Channels)
			t.BitDepth = int(e.Audio.BitDepth)
		}
		f.Tracks = append(f.Tracks, t)
	}

	for _, c := range seg.Cluster {
		pc := Cluster{Timecode: int64(c.Timecode)}
		for _, b := range c.SimpleBlock {
			pc.Blocks = append(pc.Blocks, Block{
				Track:    b.TrackNumber,
				Timecode: int64(c.Timecode) + int64(b.Timecode),
				Keyframe: b.Keyframe,
				Frames:   b.Data,
			})
		}
		f.Clusters = append(f.Clusters, pc)
	}

	for _, cp := range seg.Cues.CuePoint {
		for _, pos := range cp.CueTrackPositions {
			f.Cues = append(f.Cues, CuePoint{
				Time:            int64(cp.CueTime),
				Track:           pos.CueTrack,
				ClusterPosition: pos.CueClusterPosition,
			})
		}
	}
	sort.SliceStable(f.Cues, func(i, j int) bool { return f.Cues[i].Time < f.Cues[j].Time })

	return f, nil
}

// Track returns the track with the given number.
func (f *File) Track(number uint64) (Track, bool) {
	for _, t := range f.Tracks {
		if t.Number == number {
			return t, true
		}
	}
	return Track{}, false
}

// FirstTrack returns the first track of a kind whose codec passes accept.
func (f *File) FirstTrack(kind media.TrackKind, accept func(codecID string) bool) (Track, bool) {
	for _, t := range f.Tracks {
		if t.Kind == kind && (accept == nil || accept(t.CodecID)) {
			return t, true
		}
	}
	return Track{}, false
}

// Block returns the block at ref.
func (f *File) Block(ref BlockRef) Block {
	return f.Clusters[ref.Cluster].Blocks[ref.Index]
}

// TrackBlockCount returns the number of blocks of a track.
func (f *File) TrackBlockCount(track uint64) int {
	n := 0
	for _, c := range f.Clusters {
		for _, b := range c.Blocks {
			if b.Track == track {
				n++
			}
		}
	}
	return n
}

// TrackTimecodes returns every block timecode of a track in file order.
func (f *File) TrackTimecodes(track uint64) []int64 {
	var out []int64
	for _, c := range f.Clusters {
		for _, b := range c.Blocks {
			if b.Track == track {
				out = append(out, b.Timecode)
			}
		}
	}
	return out
}

// SeekKeyframe finds the last keyframe of track at or before timecode.
// Cues narrow the scan to the indexed cluster; without a usable cue every
// cluster is scanned. A timecode before the first keyframe resolves to the
// first keyframe.
func (f *File) SeekKeyframe(track uint64, timecode int64) (BlockRef, error) {
	return f.seek(track, timecode, true, f.cueCluster(track, timecode))
}

// SeekBlock finds the last block of track at or before timecode, or the first block.
func (f *File) SeekBlock(track uint64, timecode int64) (BlockRef, error) {
	return f.seek(track, timecode, false, 0)
}

// cueCluster returns the index of the cluster holding the last cued keyframe
// at or before timecode, or 0.
func (f *File) cueCluster(track uint64, timecode int64) int {
	cueTime := int64(-1)
	for _, cp := range f.Cues {
		if cp.Time > timecode {
			break
		}
		if cp.Track == track {
			cueTime = cp.Time
		}
	}
	if cueTime < 0 {
		return 0
	}

	ci := sort.Search(len(f.Clusters), func(i int) bool { return f.Clusters[i].Timecode > cueTime }) - 1
	for ; ci >= 0; ci-- {
		for _, b := range f.Clusters[ci].Blocks {
			if b.Track == track && b.Keyframe && b.Timecode == cueTime {
				return ci
			}
		}
	}
	return 0
}

func (f *File) seek(track uint64, timecode int64, keyOnly bool, fromCluster int) (BlockRef, error) {
	found := false
	var best, first BlockRef
	haveFirst := false

	for ci := fromCluster; ci < len(f.Clusters); ci++ {
		c := f.Clusters[ci]
		if found && c.Timecode > timecode {
			break
		}
		for bi, b := range c.Blocks {
			if b.Track != track || (keyOnly && !b.Keyframe) {
				continue
			}
			if !haveFirst {
				first = BlockRef{Cluster: ci, Index: bi}
				haveFirst = true
			}
			if b.Timecode <= timecode {
				best = BlockRef{Cluster: ci, Index: bi}
				found = true
			}
		}
	}

	switch {
	case found:
		return best, nil
	case haveFirst:
		return first, nil
	default:
		return BlockRef{}, errors.Wrapf(ErrNoBlock, "track %d", track)
	}
}

// Cursor walks the blocks of one track in file order.
type Cursor struct {
	f     *File
	track uint64
	next  BlockRef
}

// NewCursor starts a cursor at ref.
func (f *File) NewCursor(track uint64, ref BlockRef) *Cursor {
	return &Cursor{f: f, track: track, next: ref}
}

// Next returns the next block of the track, or false at end of stream.
func (c *Cursor) Next() (Block, BlockRef, bool) {
	for c.next.Cluster < len(c.f.Clusters) {
		blocks := c.f.Clusters[c.next.Cluster].Blocks
		for c.next.Index < len(blocks) {
			ref := c.next
			b := blocks[c.next.Index]
			c.next.Index++
			if b.Track == c.track {
				return b, ref, true
			}
		}
		c.next = BlockRef{Cluster: c.next.Cluster + 1}
	}
	return Block{}, BlockRef{}, false
}
