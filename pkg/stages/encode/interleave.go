package encode

import (
	"errors"
	"fmt"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/timebase"
)

// ErrUnknownPacket is returned for a video packet whose pts was never submitted.
var ErrUnknownPacket = errors.New("encode: packet for unknown frame")

// blockWriter is the part of the muxer the interleaver writes to.
type blockWriter interface {
	AddFrame(track uint64, payload []byte, timecode int64, keyframe bool) error
}

type block struct {
	track    uint64
	data     []byte
	timecode int64
	keyframe bool
}

// interleaver merges video and audio blocks into one non-decreasing
// timecode sequence. A track number of zero means the track is absent.
type interleaver struct {
	w          blockWriter
	tb         timebase.TimeBase
	videoTrack uint64
	audioTrack uint64
	sampleRate int

	timecodes map[int64]int64 // codec pts -> container timecode
	video     []block
	audio     []block
	videoDone bool
	audioDone bool

	videoBlocks int
	audioBlocks int
}

func newInterleaver(w blockWriter, tb timebase.TimeBase, videoTrack, audioTrack uint64, sampleRate int) *interleaver {
	return &interleaver{
		w:          w,
		tb:         tb,
		videoTrack: videoTrack,
		audioTrack: audioTrack,
		sampleRate: sampleRate,
		timecodes:  make(map[int64]int64),
		videoDone:  videoTrack == 0,
		audioDone:  audioTrack == 0,
	}
}

// expect records the timecode of a frame submitted with pts.
func (il *interleaver) expect(pts, timecode int64) {
	il.timecodes[pts] = timecode
}

func (il *interleaver) pushVideo(pkts []media.Packet) error {
	for _, pkt := range pkts {
		tc, ok := il.timecodes[pkt.PTS]
		if !ok {
			return fmt.Errorf("%w: pts %d", ErrUnknownPacket, pkt.PTS)
		}
		delete(il.timecodes, pkt.PTS)
		il.video = append(il.video, block{track: il.videoTrack, data: pkt.Data, timecode: tc, keyframe: pkt.Keyframe})
	}
	return nil
}

func (il *interleaver) pushAudio(pkts []media.AudioPacket) {
	for _, pkt := range pkts {
		tc := il.tb.SampleToTimecode(pkt.StartSample(), il.sampleRate)
		il.audio = append(il.audio, block{track: il.audioTrack, data: pkt.Data, timecode: tc, keyframe: true})
	}
}

func (il *interleaver) finishVideo() { il.videoDone = true }
func (il *interleaver) finishAudio() { il.audioDone = true }

// flush writes every block that can no longer be preceded by a later one.
func (il *interleaver) flush() error {
	for {
		var b block
		switch {
		case len(il.video) > 0 && len(il.audio) > 0:
			if il.audio[0].timecode < il.video[0].timecode {
				b, il.audio = il.audio[0], il.audio[1:]
			} else {
				b, il.video = il.video[0], il.video[1:]
			}
		case len(il.video) > 0 && il.audioDone:
			b, il.video = il.video[0], il.video[1:]
		case len(il.audio) > 0 && il.videoDone:
			b, il.audio = il.audio[0], il.audio[1:]
		default:
			return nil
		}

		if err := il.w.AddFrame(b.track, b.data, b.timecode, b.keyframe); err != nil {
			return fmt.Errorf("add block to track %d at %d: %w", b.track, b.timecode, err)
		}
		if b.track == il.videoTrack {
			il.videoBlocks++
		} else {
			il.audioBlocks++
		}
	}
}

// pending returns the number of blocks not yet written.
func (il *interleaver) pending() int {
	return len(il.video) + len(il.audio)
}
