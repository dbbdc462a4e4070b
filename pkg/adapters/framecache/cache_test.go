package framecache

import (
	"sync"
	"testing"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

// frameBytes is the payload of a 16x16 frame.
const frameBytes = 16*16 + 2*8*8

func key(i int64) ports.FrameKey {
	return ports.FrameKey{SourceID: "clip", Index: i}
}

func TestLRU_GetPut(t *testing.T) {
	c := New(10 * frameBytes)
	img := media.NewImage(16, 16)

	if _, ok := c.Get(key(1)); ok {
		t.Error("expected miss on an empty cache")
	}
	c.Put(key(1), img)
	got, ok := c.Get(key(1))
	if !ok || got != img {
		t.Error("expected the stored frame")
	}
	if _, ok := c.Get(ports.FrameKey{SourceID: "other", Index: 1}); ok {
		t.Error("expected keys to be scoped by source")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("expected 1 hit and 2 misses, got %d and %d", hits, misses)
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(3 * frameBytes)
	for i := int64(1); i <= 4; i++ {
		c.Put(key(i), media.NewImage(16, 16))
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 frames, got %d", c.Len())
	}
	if _, ok := c.Get(key(1)); ok {
		t.Error("expected frame 1 evicted")
	}

	c.Get(key(2))
	c.Put(key(5), media.NewImage(16, 16))
	if _, ok := c.Get(key(3)); ok {
		t.Error("expected frame 3 evicted after frame 2 was used")
	}
	for _, i := range []int64{2, 4, 5} {
		if _, ok := c.Get(key(i)); !ok {
			t.Errorf("expected frame %d cached", i)
		}
	}
}

func TestLRU_ReplaceAndOversize(t *testing.T) {
	c := New(2 * frameBytes)
	c.Put(key(1), media.NewImage(16, 16))
	replacement := media.NewImage(16, 16)
	c.Put(key(1), replacement)
	if c.Len() != 1 {
		t.Errorf("expected 1 frame after replace, got %d", c.Len())
	}
	if got, _ := c.Get(key(1)); got != replacement {
		t.Error("expected the replacement frame")
	}

	c.Put(key(2), media.NewImage(64, 64))
	if _, ok := c.Get(key(2)); ok {
		t.Error("expected a frame over budget to be dropped")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 frame, got %d", c.Len())
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := New(8 * frameBytes)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := int64(0); i < 100; i++ {
				c.Put(key(i%16), media.NewImage(16, 16))
				c.Get(key((i + int64(g)) % 16))
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Errorf("expected at most 8 frames, got %d", c.Len())
	}
}
