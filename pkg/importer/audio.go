package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/webm"
)

// packetSizer is implemented by decoders that can size a block without
// decoding it.
type packetSizer interface {
	PacketSamples(data []byte) (int, error)
}

// audioBlock places one block on the decoded sample timeline.
type audioBlock struct {
	ref   webm.BlockRef
	start int64
	count int64
}

// AudioRandomAccess reads decoded samples at arbitrary positions.
//
// Block timecodes are rounded to the container's timecode units, so the
// first read builds an exact sample index of the track. Reads seek by
// timecode, step back to the block whose exact start is at or before the
// request, decode from one block earlier and copy the overlap.
type AudioRandomAccess struct {
	file    *webm.File
	track   webm.Track
	headers ports.AudioHeaders
	opts    Options

	once     sync.Once
	index    []audioBlock
	byRef    map[webm.BlockRef]int
	indexErr error
}

func newAudioRandomAccess(f *webm.File, t webm.Track, opts Options) (*AudioRandomAccess, error) {
	var headers ports.AudioHeaders
	switch {
	case webm.PrivateDataCount(t.CodecPrivate) == 3:
		parts, err := webm.UnpackPrivateData(t.CodecPrivate)
		if err != nil {
			return nil, badFile(ErrBadHeader, "audio track %d: %v", t.Number, err)
		}
		headers = parts
	case t.CodecID == media.CodecVorbis:
		return nil, badFile(ErrBadHeader, "audio track %d: expected 3 setup packets, found %d",
			t.Number, webm.PrivateDataCount(t.CodecPrivate))
	}
	return &AudioRandomAccess{file: f, track: t, headers: headers, opts: opts}, nil
}

// SampleRate returns the track sample rate.
func (a *AudioRandomAccess) SampleRate() int {
	return a.track.SampleRate
}

// Channels returns the track channel count.
func (a *AudioRandomAccess) Channels() int {
	return a.track.Channels
}

// Samples returns the exact number of decodable samples in the track.
func (a *AudioRandomAccess) Samples() (int64, error) {
	if err := a.ensureIndex(); err != nil {
		return 0, err
	}
	if len(a.index) == 0 {
		return 0, nil
	}
	last := a.index[len(a.index)-1]
	return last.start + last.count, nil
}

func (a *AudioRandomAccess) newDecoder() (ports.AudioDecoder, error) {
	dec, err := a.opts.NewAudioDecoder(a.track.CodecID)
	if err != nil {
		return nil, fmt.Errorf("create audio decoder: %w", err)
	}
	if err := dec.Begin(ports.AudioDecoderConfig{
		Codec:      a.track.CodecID,
		SampleRate: a.track.SampleRate,
		Channels:   a.track.Channels,
		Headers:    a.headers,
	}); err != nil {
		dec.End()
		return nil, fmt.Errorf("begin audio decoder: %w", err)
	}
	return dec, nil
}

func (a *AudioRandomAccess) ensureIndex() error {
	a.once.Do(func() {
		a.indexErr = a.buildIndex()
	})
	return a.indexErr
}

func (a *AudioRandomAccess) buildIndex() error {
	dec, err := a.newDecoder()
	if err != nil {
		return err
	}
	defer dec.End()
	sizer, _ := dec.(packetSizer)

	a.byRef = make(map[webm.BlockRef]int)
	var pos int64
	cur := a.file.NewCursor(a.track.Number, webm.BlockRef{})
	for {
		b, ref, ok := cur.Next()
		if !ok {
			break
		}
		var n int64
		for _, frame := range b.Frames {
			if sizer != nil {
				m, err := sizer.PacketSamples(frame)
				if err != nil {
					return fmt.Errorf("size audio block at %d: %w", b.Timecode, err)
				}
				n += int64(m)
				continue
			}
			out, err := dec.Decode(frame)
			if err != nil {
				return fmt.Errorf("index audio block at %d: %w", b.Timecode, err)
			}
			if len(out) > 0 {
				n += int64(len(out[0]))
			}
		}
		a.byRef[ref] = len(a.index)
		a.index = append(a.index, audioBlock{ref: ref, start: pos, count: n})
		pos += n
	}
	a.opts.Logger.Debug("Audio index built: %d blocks, %d samples", len(a.index), pos)
	return nil
}

// timecodeOf returns the timecode at or before sample, truncating.
func (a *AudioRandomAccess) timecodeOf(sample int64) int64 {
	rate := int64(a.track.SampleRate)
	unitsPerSecond := 1_000_000_000 / a.file.TimecodeScale
	return sample/rate*unitsPerSecond + sample%rate*unitsPerSecond/rate
}

// ReadSamples decodes count samples starting at sample start into the
// planar buffers out, one per channel. It returns the number of samples
// written, which is short only when the stream ends first.
func (a *AudioRandomAccess) ReadSamples(ctx context.Context, start int64, count int, out [][]float32) (int, error) {
	if start < 0 || count < 0 {
		return 0, fmt.Errorf("importer: invalid sample range %d+%d", start, count)
	}
	if len(out) < a.track.Channels {
		return 0, fmt.Errorf("importer: %d output channels for a %d channel track", len(out), a.track.Channels)
	}
	for ch := 0; ch < a.track.Channels; ch++ {
		if len(out[ch]) < count {
			return 0, fmt.Errorf("importer: channel %d buffer holds %d of %d samples", ch, len(out[ch]), count)
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := a.ensureIndex(); err != nil {
		return 0, err
	}

	ref, err := a.file.SeekBlock(a.track.Number, a.timecodeOf(start))
	if err != nil {
		return 0, nil
	}
	k := a.byRef[ref]
	for k > 0 && a.index[k].start > start {
		k--
	}
	if k > 0 {
		k-- // preroll
	}

	dec, err := a.newDecoder()
	if err != nil {
		return 0, err
	}
	defer dec.End()

	written := 0
	for j := k; j < len(a.index) && written < count; j++ {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		blk := a.index[j]
		b := a.file.Block(blk.ref)

		var decoded [][]float32
		for _, frame := range b.Frames {
			pcm, err := dec.Decode(frame)
			if err != nil {
				return written, fmt.Errorf("decode audio block at %d: %w", b.Timecode, err)
			}
			decoded = appendPlanar(decoded, pcm)
		}
		if len(decoded) == 0 || len(decoded[0]) == 0 {
			continue
		}
		if len(decoded) < a.track.Channels {
			return written, fmt.Errorf("importer: decoder produced %d of %d channels", len(decoded), a.track.Channels)
		}

		n := int64(len(decoded[0]))
		dataStart := blk.start + blk.count - n
		want := start + int64(written)
		if dataStart+n <= want {
			continue
		}
		off := want - dataStart
		if off < 0 {
			off = 0
		}
		m := int(n - off)
		if m > count-written {
			m = count - written
		}
		for ch := 0; ch < a.track.Channels; ch++ {
			copy(out[ch][written:written+m], decoded[ch][off:off+int64(m)])
		}
		written += m
	}
	return written, nil
}

func appendPlanar(dst, src [][]float32) [][]float32 {
	if dst == nil {
		return src
	}
	for ch := range dst {
		if ch < len(src) {
			dst[ch] = append(dst[ch], src[ch]...)
		}
	}
	return dst
}
