// Package framecache provides a bounded in-memory ports.FrameCache.
package framecache

import (
	"container/list"
	"sync"

	"github.com/user/webmio/pkg/media"
	"github.com/user/webmio/pkg/ports"
)

type entry struct {
	key   ports.FrameKey
	img   *media.Image
	bytes int
}

// LRU evicts the least recently used frames once the payload exceeds
// its byte budget.
type LRU struct {
	mu       sync.Mutex
	maxBytes int
	size     int
	order    *list.List
	items    map[ports.FrameKey]*list.Element

	hits   int
	misses int
}

// New creates a cache holding at most maxBytes of frame payload.
func New(maxBytes int) *LRU {
	return &LRU{
		maxBytes: maxBytes,
		order:    list.New(),
		items:    make(map[ports.FrameKey]*list.Element),
	}
}

// Get returns a cached frame and marks it as recently used.
func (c *LRU) Get(key ports.FrameKey) (*media.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).img, true
}

// Put stores a frame. A frame larger than the whole budget is not kept.
func (c *LRU) Put(key ports.FrameKey, img *media.Image) {
	n := img.PayloadSize()
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		c.size += n - e.bytes
		e.img, e.bytes = img, n
		c.order.MoveToFront(el)
	} else {
		if n > c.maxBytes {
			return
		}
		c.items[key] = c.order.PushFront(&entry{key: key, img: img, bytes: n})
		c.size += n
	}

	for c.size > c.maxBytes {
		oldest := c.order.Back()
		e := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.items, e.key)
		c.size -= e.bytes
	}
}

// Len returns the number of cached frames.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the hit and miss counts.
func (c *LRU) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

var _ ports.FrameCache = (*LRU)(nil)
