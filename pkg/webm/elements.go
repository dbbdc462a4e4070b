// Package webm writes and reads the WebM container: EBML header, segment info,
// tracks, clusters of simple blocks and cues.
package webm

import (
	"github.com/at-wat/ebml-go"
)

// Element IDs written by hand around the ebml-go marshalled children.
var segmentID = []byte{0x18, 0x53, 0x80, 0x67}

const (
	docTypeWebM     = "webm"
	docTypeMatroska = "matroska"

	trackTypeVideo = 1
	trackTypeAudio = 2
)

type ebmlHeader struct {
	EBMLVersion            uint64
	EBMLReadVersion        uint64
	EBMLMaxIDLength        uint64
	EBMLMaxSizeLength      uint64
	EBMLDocType            string
	EBMLDocTypeVersion     uint64
	EBMLDocTypeReadVersion uint64
}

type headerElement struct {
	Header ebmlHeader `ebml:"EBML"`
}

// Duration is written unconditionally so the element keeps its size when
// it is patched at finalize.
type segmentInfo struct {
	TimecodeScale uint64
	SegmentUID    []byte `ebml:",omitempty"`
	MuxingApp     string
	WritingApp    string
	Duration      float64
}

type infoElement struct {
	Info segmentInfo
}

type videoSettings struct {
	PixelWidth  uint64
	PixelHeight uint64
}

type audioSettings struct {
	SamplingFrequency float64
	Channels          uint64
	BitDepth          uint64 `ebml:",omitempty"`
}

type trackEntry struct {
	Name            string `ebml:",omitempty"`
	TrackNumber     uint64
	TrackUID        uint64
	TrackType       uint64
	CodecID         string
	CodecPrivate    []byte         `ebml:",omitempty"`
	DefaultDuration uint64         `ebml:",omitempty"`
	Video           *videoSettings `ebml:",omitempty"`
	Audio           *audioSettings `ebml:",omitempty"`
}

type tracks struct {
	TrackEntry []trackEntry
}

type tracksElement struct {
	Tracks tracks
}

type cluster struct {
	Timecode    uint64
	SimpleBlock []ebml.Block `ebml:",omitempty"`
}

type clusterElement struct {
	Cluster cluster
}

type cueTrackPosition struct {
	CueTrack           uint64
	CueClusterPosition uint64
}

type cuePoint struct {
	CueTime           uint64
	CueTrackPositions []cueTrackPosition
}

type cues struct {
	CuePoint []cuePoint
}

type cuesElement struct {
	Cues cues
}

// fileLayout is the read-side view of a whole file.
type fileLayout struct {
	Header  ebmlHeader `ebml:"EBML"`
	Segment segment
}

type segment struct {
	Info    segmentInfo
	Tracks  tracks
	Cluster []cluster
	Cues    cues
}
