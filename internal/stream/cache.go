// Package stream tracks the lifecycle of live stream workers: each worker
// owns one source connection, a reconnection state machine, an optional
// audio channel, and a single-slot cache holding its most recent frame.
package stream

import (
	"sync"

	"github.com/zsiec/mosaic/internal/media"
)

// Cache is a single-slot holder for the most recent frame of one stream.
// It is the only state shared between a worker goroutine and the render
// loop; the lock is held only for the pointer swap or the copy-out, never
// across I/O.
type Cache struct {
	mu    sync.Mutex
	frame *media.Frame
}

// Put stores f as the latest frame, replacing any previous one. The caller
// transfers ownership of f; it must not touch the pixel buffer afterwards.
func (c *Cache) Put(f *media.Frame) {
	c.mu.Lock()
	c.frame = f
	c.mu.Unlock()
}

// Latest returns a deep copy of the most recent frame, or false if no
// frame has ever been stored. The slot is not cleared on disconnect, so a
// dead stream keeps showing its last picture.
func (c *Cache) Latest() (*media.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frame == nil {
		return nil, false
	}
	return c.frame.Clone(), true
}
