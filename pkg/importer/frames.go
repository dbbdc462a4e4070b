package importer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
	"github.com/user/webmio/pkg/timebase"
	"github.com/user/webmio/pkg/webm"
	"golang.org/x/sync/singleflight"
)

// DecodeCache serves decoded video frames by index. A miss seeks to the
// keyframe at or before the frame and decodes forward, caching every
// frame it passes.
type DecodeCache struct {
	file  *webm.File
	track webm.Track
	tb    timebase.TimeBase
	opts  Options

	group singleflight.Group
}

func newDecodeCache(f *webm.File, t webm.Track, rate timebase.Rational, opts Options) (*DecodeCache, error) {
	tb, err := timebase.New(timebase.DefaultTicksPerSecond, rate, f.TimecodeScale)
	if err != nil {
		return nil, badFile(ErrNoImportableStreams, "video time base: %v", err)
	}
	return &DecodeCache{file: f, track: t, tb: tb, opts: opts}, nil
}

// FrameTimecode returns the container timecode of frame index.
func (c *DecodeCache) FrameTimecode(index int64) int64 {
	return c.tb.ToContainerTimecode(c.tb.FrameTick(index))
}

// GetFrame returns frame index. Concurrent requests for the same frame
// share one decode. The shared decode is detached from any single caller's
// context, so a caller that gives up only stops its own wait.
func (c *DecodeCache) GetFrame(ctx context.Context, index int64) (*media.Image, error) {
	key := ports.FrameKey{SourceID: c.opts.SourceID, Index: index}
	if img, ok := c.opts.Cache.Get(key); ok {
		return img, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatInt(index, 10), func() (interface{}, error) {
		if img, ok := c.opts.Cache.Get(key); ok {
			return img, nil
		}
		return c.decode(shared, index)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*media.Image), nil
	}
}

func (c *DecodeCache) decode(ctx context.Context, index int64) (*media.Image, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: index %d", ErrFrameNotFound, index)
	}
	target := c.FrameTimecode(index)

	ref, err := c.file.SeekKeyframe(c.track.Number, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameNotFound, err)
	}

	dec, err := c.opts.NewVideoDecoder(c.track.CodecID)
	if err != nil {
		return nil, fmt.Errorf("create video decoder: %w", err)
	}
	if err := dec.Begin(ports.VideoDecoderConfig{
		Codec:          c.track.CodecID,
		Width:          c.track.Width,
		Height:         c.track.Height,
		Threads:        c.opts.Threads,
		FrameThreading: c.opts.Threads > 1,
	}); err != nil {
		return nil, fmt.Errorf("begin video decoder: %w", err)
	}
	defer dec.End()

	cur := c.file.NewCursor(c.track.Number, ref)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, _, ok := cur.Next()
		if !ok || b.Timecode > target {
			break
		}

		idx := timebase.FrameIndex(b.Timecode*c.file.TimecodeScale, c.tb.FrameRate)
		var found *media.Image
		for _, data := range b.Frames {
			imgs, err := dec.Decode(data)
			if err != nil {
				return nil, fmt.Errorf("decode frame at %d: %w", b.Timecode, err)
			}
			for _, img := range imgs {
				c.opts.Cache.Put(ports.FrameKey{SourceID: c.opts.SourceID, Index: idx}, img)
				if idx == index {
					found = img
				}
			}
		}
		if found != nil {
			c.opts.Logger.Debug("Decoded frame %d from keyframe at timecode %d", index, c.file.Block(ref).Timecode)
			return found, nil
		}
	}

	return nil, fmt.Errorf("%w: index %d at timecode %d", ErrFrameNotFound, index, target)
}
